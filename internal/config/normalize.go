package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeIPC(); err != nil {
		return err
	}
	c.normalizePlayer()
	if err := c.normalizeTranscript(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RuntimeDir) == "" {
		c.Paths.RuntimeDir = defaultRuntimeDir()
	}
	if c.Paths.RuntimeDir, err = expandPath(c.Paths.RuntimeDir); err != nil {
		return fmt.Errorf("paths.runtime_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIPC() error {
	if value, ok := os.LookupEnv(SocketEnv); ok && strings.TrimSpace(value) != "" {
		c.IPC.SocketPath = value
	}
	c.IPC.SocketPath = strings.TrimSpace(c.IPC.SocketPath)
	c.IPC.Network = strings.ToLower(strings.TrimSpace(c.IPC.Network))
	if c.IPC.Network == "" {
		c.IPC.Network = defaultNetwork
	}
	// Abstract sockets ("@name") and TCP addresses are not filesystem paths.
	if c.IPC.Network == "unix" && !strings.HasPrefix(c.IPC.SocketPath, "@") {
		var err error
		if c.IPC.SocketPath, err = expandPath(c.IPC.SocketPath); err != nil {
			return fmt.Errorf("ipc.socket_path: %w", err)
		}
	}
	if c.IPC.MaxLineBytes == 0 {
		c.IPC.MaxLineBytes = defaultMaxLineBytes
	}
	return nil
}

func (c *Config) normalizePlayer() {
	c.Player.Binary = strings.TrimSpace(c.Player.Binary)
	if c.Player.Binary == "" {
		c.Player.Binary = defaultPlayerBinary
	}
	c.Player.ExtraArgs = nonEmpty(c.Player.ExtraArgs)
	c.Player.Scripts = compact(c.Player.Scripts)
	for i, script := range c.Player.Scripts {
		if expanded, err := expandPath(script); err == nil {
			c.Player.Scripts[i] = expanded
		}
	}
	c.Player.EnableEvents = compact(c.Player.EnableEvents)
	c.Player.ReadyEvent = strings.TrimSpace(c.Player.ReadyEvent)
}

func (c *Config) normalizeTranscript() error {
	if strings.TrimSpace(c.Transcript.Path) == "" {
		c.Transcript.Path = defaultTranscriptPath
	}
	var err error
	if c.Transcript.Path, err = expandPath(c.Transcript.Path); err != nil {
		return fmt.Errorf("transcript.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// compact trims entries and drops blanks and duplicates, keeping order.
func compact(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func nonEmpty(values []string) []string {
	var out []string
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
