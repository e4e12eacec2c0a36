package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mpvctl/internal/logs"
)

func writeOutput(t *testing.T, dir, id, content string, mod time.Time) string {
	t.Helper()
	path := logs.OutputPath(dir, id)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write output: %v", err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return path
}

func TestLastLines(t *testing.T) {
	dir := t.TempDir()
	path := writeOutput(t, dir, "a", "one\ntwo\nthree\n", time.Now())

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "two" || lines[1] != "three" {
		t.Fatalf("unexpected lines %#v", lines)
	}
	if offset != int64(len("one\ntwo\nthree\n")) {
		t.Fatalf("offset = %d", offset)
	}

	lines, _, err = logs.Last(path, 10)
	if err != nil || len(lines) != 3 {
		t.Fatalf("expected all lines, got %#v (%v)", lines, err)
	}

	lines, offset, err = logs.Last(filepath.Join(dir, "missing.log"), 5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("missing file: lines=%v offset=%d err=%v", lines, offset, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := writeOutput(t, dir, "a", "start\n", time.Now())
	_, offset, err := logs.Last(path, 0)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("later\npart"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("expected only the terminated line, got %#v", got)
	}
}

func TestListAndResolveOutputs(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeOutput(t, dir, "1111-aaaa", "old\n", now.Add(-time.Hour))
	writeOutput(t, dir, "2222-bbbb", "new\n", now)
	writeOutput(t, dir, "2223-cccc", "newer prefix sibling\n", now.Add(-time.Minute))
	if err := os.WriteFile(filepath.Join(dir, "mpvctl.log"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	outputs, err := logs.ListOutputs(dir)
	if err != nil {
		t.Fatalf("ListOutputs: %v", err)
	}
	if len(outputs) != 3 || outputs[0].ID != "2222-bbbb" || outputs[2].ID != "1111-aaaa" {
		t.Fatalf("unexpected outputs %+v", outputs)
	}

	latest, err := logs.ResolveOutput(dir, "latest")
	if err != nil || latest.ID != "2222-bbbb" {
		t.Fatalf("latest = %+v (%v)", latest, err)
	}
	byPrefix, err := logs.ResolveOutput(dir, "111")
	if err != nil || byPrefix.ID != "1111-aaaa" {
		t.Fatalf("prefix = %+v (%v)", byPrefix, err)
	}
	if _, err := logs.ResolveOutput(dir, "222"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
	if _, err := logs.ResolveOutput(t.TempDir(), ""); err == nil {
		t.Fatal("expected error for empty directory")
	}
}
