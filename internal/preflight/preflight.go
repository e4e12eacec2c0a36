package preflight

import (
	"context"
	"log/slog"
	"path/filepath"

	"mpvctl/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Failed reports whether the check failed and is required.
func (r Result) Failed() bool { return !r.Passed && !r.Optional }

// LaunchChecks covers what `mpvctl launch` needs before spawning mpv.
func LaunchChecks(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckBinary("mpv binary", cfg.Player.Binary),
		CheckDirectoryAccess("Runtime directory", cfg.Paths.RuntimeDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	for _, script := range cfg.Player.Scripts {
		results = append(results, CheckScript(script))
	}
	return results
}

// RunAll executes LaunchChecks plus the transcript directory and a probe
// of the configured socket.
func RunAll(ctx context.Context, cfg *config.Config, logger *slog.Logger) []Result {
	if cfg == nil {
		return nil
	}
	results := LaunchChecks(cfg)
	if cfg.Transcript.Enabled {
		results = append(results, CheckDirectoryAccess("Transcript directory", filepath.Dir(cfg.Transcript.Path)))
	}
	results = append(results, CheckSocket(ctx, cfg, logger))
	return results
}

// FirstFailure returns the first required check that failed.
func FirstFailure(results []Result) (Result, bool) {
	for _, r := range results {
		if r.Failed() {
			return r, true
		}
	}
	return Result{}, false
}
