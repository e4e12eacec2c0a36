package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// SocketEnv names the environment variable that overrides ipc.socket_path.
const SocketEnv = "MPVCTL_SOCKET"

// Paths contains directory configuration.
type Paths struct {
	LogDir     string `toml:"log_dir"`
	RuntimeDir string `toml:"runtime_dir"`
}

// IPC contains settings for the JSON IPC connection to mpv.
type IPC struct {
	SocketPath       string `toml:"socket_path"`
	Network          string `toml:"network"`
	ConnectTimeoutMS int    `toml:"connect_timeout_ms"`
	CommandTimeoutMS int    `toml:"command_timeout_ms"`
	EventTimeoutMS   int    `toml:"event_timeout_ms"`
	PollIntervalMS   int    `toml:"poll_interval_ms"`
	MaxLineBytes     int    `toml:"max_line_bytes"`
}

// Player contains settings for launching a managed mpv process.
type Player struct {
	Binary    string   `toml:"binary"`
	ExtraArgs []string `toml:"extra_args"`
	// Scripts are passed to load-script after attaching, in order.
	Scripts []string `toml:"scripts"`
	// EnableEvents are passed to enable_event after attaching.
	EnableEvents []string `toml:"enable_events"`
	// ReadyEvent, when set, is awaited after scripts are loaded.
	ReadyEvent string `toml:"ready_event"`
}

// Transcript contains settings for the SQLite session transcript.
type Transcript struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mpvctl.
//
// Configuration sections by subsystem:
//   - Paths: log and runtime directories
//   - IPC: socket location, timeouts and framing limits
//   - Player: mpv binary, arguments and attach-time setup
//   - Transcript: SQLite recording of session traffic
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	IPC        IPC        `toml:"ipc"`
	Player     Player     `toml:"player"`
	Transcript Transcript `toml:"transcript"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mpvctl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and runtime directories, plus the
// transcript directory when recording is enabled.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.RuntimeDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Transcript.Enabled && strings.TrimSpace(c.Transcript.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Transcript.Path), 0o755); err != nil {
			return fmt.Errorf("create transcript directory: %w", err)
		}
	}
	return nil
}

// ConnectTimeout returns ipc.connect_timeout_ms as a duration.
func (c *Config) ConnectTimeout() time.Duration { return millis(c.IPC.ConnectTimeoutMS) }

// CommandTimeout returns ipc.command_timeout_ms as a duration.
func (c *Config) CommandTimeout() time.Duration { return millis(c.IPC.CommandTimeoutMS) }

// EventTimeout returns ipc.event_timeout_ms as a duration.
func (c *Config) EventTimeout() time.Duration { return millis(c.IPC.EventTimeoutMS) }

// PollInterval returns ipc.poll_interval_ms as a duration.
func (c *Config) PollInterval() time.Duration { return millis(c.IPC.PollIntervalMS) }

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultRuntimeDir() string {
	if base, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "mpvctl")
	}
	return filepath.Join(os.TempDir(), "mpvctl")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
