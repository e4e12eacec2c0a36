package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mpvctl/internal/ipc/ipctest"
	"mpvctl/internal/logging"
	"mpvctl/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBinary(t *testing.T) {
	present := filepath.Join(t.TempDir(), "mpv")
	testsupport.WriteExecutable(t, present, "#!/bin/sh\nexit 0\n")

	if r := CheckBinary("mpv", present); !r.Passed || r.Detail != present {
		t.Fatalf("expected present binary to pass, got %+v", r)
	}
	if r := CheckBinary("mpv", "clearly-not-present-binary"); r.Passed || !strings.Contains(r.Detail, "not found") {
		t.Fatalf("expected missing binary to fail, got %+v", r)
	}
	if r := CheckBinary("mpv", "  "); r.Passed || r.Detail != "command not configured" {
		t.Fatalf("expected unconfigured binary to fail, got %+v", r)
	}
}

func TestCheckScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "webm.lua")
	if err := os.WriteFile(script, []byte("-- lua"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckScript(script); !r.Passed {
		t.Fatalf("expected script to pass, got %+v", r)
	}
	if r := CheckScript(dir); !r.Passed || !strings.Contains(r.Detail, "directory") {
		t.Fatalf("expected script directory to pass, got %+v", r)
	}
	if r := CheckScript(filepath.Join(dir, "missing.lua")); r.Passed {
		t.Fatal("expected missing script to fail")
	}
}

func TestLaunchChecksReportsMissingScript(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPlayerBinary("#!/bin/sh\nexit 0\n"))
	cfg.Player.Scripts = []string{filepath.Join(testsupport.BaseDir(cfg), "missing.lua")}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	results := LaunchChecks(cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	failure, ok := FirstFailure(results)
	if !ok || failure.Name != "Script" {
		t.Fatalf("expected script failure, got %+v (ok=%v)", failure, ok)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, logging.NewNop()); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAllProbesSocket(t *testing.T) {
	srv := ipctest.NewServer(t)
	srv.Handle(ipctest.Success("mpv 0.38.0"))

	cfg := testsupport.NewConfig(t,
		testsupport.WithPlayerBinary("#!/bin/sh\nexit 0\n"),
		testsupport.WithSocket(srv.Path()),
		testsupport.WithTranscript(),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	results := RunAll(context.Background(), cfg, logging.NewNop())
	if failure, ok := FirstFailure(results); ok {
		t.Fatalf("unexpected failure %+v", failure)
	}
	last := results[len(results)-1]
	if last.Name != "mpv socket" || !last.Passed || !strings.Contains(last.Detail, "mpv 0.38.0") {
		t.Fatalf("unexpected socket result %+v", last)
	}
	if results[len(results)-2].Name != "Transcript directory" {
		t.Fatalf("expected transcript directory check, got %+v", results[len(results)-2])
	}
}

func TestCheckSocketUnreachableIsOptional(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result := CheckSocket(context.Background(), cfg, logging.NewNop())
	if result.Passed || !result.Optional || result.Failed() {
		t.Fatalf("expected optional failure, got %+v", result)
	}
}
