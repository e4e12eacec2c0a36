package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIPC(); err != nil {
		return err
	}
	if err := c.validatePlayer(); err != nil {
		return err
	}
	if err := c.validateTranscript(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIPC() error {
	switch c.IPC.Network {
	case "unix", "tcp":
	default:
		return fmt.Errorf("ipc.network: unsupported value %q (want unix or tcp)", c.IPC.Network)
	}
	if c.IPC.SocketPath == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("ipc.socket_path is required. Set %s or edit %s (create with 'mpvctl config init')", SocketEnv, defaultPath)
	}
	if err := ensurePositiveMap(map[string]int{
		"ipc.connect_timeout_ms": c.IPC.ConnectTimeoutMS,
		"ipc.command_timeout_ms": c.IPC.CommandTimeoutMS,
		"ipc.event_timeout_ms":   c.IPC.EventTimeoutMS,
		"ipc.poll_interval_ms":   c.IPC.PollIntervalMS,
	}); err != nil {
		return err
	}
	if c.IPC.MaxLineBytes < minMaxLineBytes {
		return fmt.Errorf("ipc.max_line_bytes must be at least %d", minMaxLineBytes)
	}
	return nil
}

func (c *Config) validatePlayer() error {
	if c.Player.Binary == "" {
		return errors.New("player.binary must be set")
	}
	for _, arg := range c.Player.ExtraArgs {
		if strings.HasPrefix(arg, "--input-ipc-server") {
			return errors.New("player.extra_args must not set --input-ipc-server; the socket is managed by mpvctl")
		}
	}
	return nil
}

func (c *Config) validateTranscript() error {
	if c.Transcript.Enabled && strings.TrimSpace(c.Transcript.Path) == "" {
		return errors.New("transcript.path must be set when transcript.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
