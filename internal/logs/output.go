package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	outputPrefix = "mpv-"
	outputSuffix = ".log"
)

// Output describes one player's output file.
type Output struct {
	ID      string
	Path    string
	Size    int64
	ModTime time.Time
}

// OutputPath returns where the player with the given id writes its output.
func OutputPath(logDir, id string) string {
	return filepath.Join(logDir, outputPrefix+id+outputSuffix)
}

// ListOutputs returns the player output files in logDir, newest first.
func ListOutputs(logDir string) ([]Output, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log directory: %w", err)
	}
	var outputs []Output
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, outputPrefix) || !strings.HasSuffix(name, outputSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		outputs = append(outputs, Output{
			ID:      strings.TrimSuffix(strings.TrimPrefix(name, outputPrefix), outputSuffix),
			Path:    filepath.Join(logDir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(outputs, func(i, j int) bool {
		return outputs[i].ModTime.After(outputs[j].ModTime)
	})
	return outputs, nil
}

// ResolveOutput finds the output file for id. "latest" and "" select the
// most recently written file; otherwise a unique id prefix is accepted.
func ResolveOutput(logDir, id string) (Output, error) {
	outputs, err := ListOutputs(logDir)
	if err != nil {
		return Output{}, err
	}
	if len(outputs) == 0 {
		return Output{}, fmt.Errorf("no player output in %s", logDir)
	}
	id = strings.TrimSpace(id)
	if id == "" || id == "latest" {
		return outputs[0], nil
	}
	var match []Output
	for _, out := range outputs {
		if out.ID == id {
			return out, nil
		}
		if strings.HasPrefix(out.ID, id) {
			match = append(match, out)
		}
	}
	switch len(match) {
	case 0:
		return Output{}, fmt.Errorf("no player output for %q", id)
	case 1:
		return match[0], nil
	default:
		return Output{}, fmt.Errorf("player id %q is ambiguous (%d matches)", id, len(match))
	}
}
