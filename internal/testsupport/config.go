package testsupport

import (
	"path/filepath"
	"testing"

	"mpvctl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Timeouts are shortened so failing tests finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.RuntimeDir = filepath.Join(base, "run")
	cfgVal.IPC.SocketPath = filepath.Join(base, "mpv.sock")
	cfgVal.IPC.ConnectTimeoutMS = 2000
	cfgVal.IPC.CommandTimeoutMS = 2000
	cfgVal.IPC.EventTimeoutMS = 2000
	cfgVal.IPC.PollIntervalMS = 20
	cfgVal.Transcript.Path = filepath.Join(base, "state", "transcript.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSocket points ipc.socket_path at path.
func WithSocket(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.IPC.SocketPath = path
	}
}

// WithRuntimeDir overrides paths.runtime_dir.
func WithRuntimeDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.RuntimeDir = dir
	}
}

// WithTranscript enables transcript recording into the temp directory.
func WithTranscript() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcript.Enabled = true
	}
}

// WithPlayerBinary writes an executable shell script named mpv into the
// temp directory and configures it as player.binary.
func WithPlayerBinary(script string) ConfigOption {
	return func(b *configBuilder) {
		target := filepath.Join(b.baseDir, "bin", "mpv")
		WriteExecutable(b.t, target, script)
		b.cfg.Player.Binary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
