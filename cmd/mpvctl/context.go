package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"mpvctl/internal/config"
	"mpvctl/internal/ipc"
	"mpvctl/internal/logging"
	"mpvctl/internal/player"
	"mpvctl/internal/transcript"
)

type commandContext struct {
	socketFlag   *string
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(socketFlag, configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		socketFlag:   socketFlag,
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.socketFlag != nil {
			if socket := strings.TrimSpace(*c.socketFlag); socket != "" {
				expanded, err := config.ExpandPath(socket)
				if err != nil {
					c.configErr = fmt.Errorf("resolve --socket: %w", err)
					return
				}
				cfg.IPC.SocketPath = expanded
			}
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// openTranscript returns the transcript store when recording is enabled.
func (c *commandContext) openTranscript() (*transcript.Store, error) {
	cfg := c.configValue()
	if cfg == nil || !cfg.Transcript.Enabled {
		return nil, nil
	}
	store, err := transcript.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return store, nil
}

// withSession dials the configured socket, starts a session, runs fn and
// stops the session again. Traffic is recorded when the transcript is
// enabled.
func (c *commandContext) withSession(ctx context.Context, fn func(*ipc.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := c.log()

	store, err := c.openTranscript()
	if err != nil {
		return err
	}
	var extra []ipc.Option
	if store != nil {
		defer store.Close()
		extra = append(extra, ipc.WithRecorder(store))
	}

	socket := cfg.IPC.SocketPath
	conn, err := ipc.Dial(ctx, socket, player.DialOptions(cfg, logger, extra...)...)
	if err != nil {
		return wrapDialError(err, socket)
	}
	if store != nil {
		if err := store.BeginSession(ctx, conn.SessionID(), socket); err != nil {
			logging.WarnWithContext(logger, "transcript session not registered", "transcript_begin_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "messages are recorded without the socket path"),
			)
		}
		defer func() {
			_ = store.EndSession(context.Background(), conn.SessionID())
		}()
	}

	session := conn.Start()
	runErr := fn(session)
	if stopErr := session.Stop(); stopErr != nil && runErr == nil {
		runErr = stopErr
	}
	return runErr
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT):
		return fmt.Errorf("connect to mpv: socket %s not found; start mpv with --input-ipc-server=%s or run `mpvctl launch`", socket, socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to mpv: socket %s refused the connection; verify mpv is still running", socket)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("connect to mpv: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
