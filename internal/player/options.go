package player

import (
	"log/slog"

	"mpvctl/internal/config"
	"mpvctl/internal/ipc"
)

// DialOptions returns the ipc options described by cfg's [ipc] section.
// Extra options are applied last.
func DialOptions(cfg *config.Config, logger *slog.Logger, extra ...ipc.Option) []ipc.Option {
	opts := []ipc.Option{ipc.WithLogger(logger)}
	if cfg != nil {
		opts = append(opts,
			ipc.WithNetwork(cfg.IPC.Network),
			ipc.WithConnectTimeout(cfg.ConnectTimeout()),
			ipc.WithCommandTimeout(cfg.CommandTimeout()),
			ipc.WithEventTimeout(cfg.EventTimeout()),
			ipc.WithPollInterval(cfg.PollInterval()),
			ipc.WithMaxLineBytes(cfg.IPC.MaxLineBytes),
		)
	}
	return append(opts, extra...)
}

// Option customizes a Player.
type Option func(*Player)

// WithRecorder mirrors the attached session into r.
func WithRecorder(r ipc.Recorder) Option {
	return func(p *Player) {
		p.recorder = r
	}
}

// WithSocketPath uses a fixed socket path instead of a generated one.
func WithSocketPath(path string) Option {
	return func(p *Player) {
		if path != "" {
			p.socketPath = path
		}
	}
}

// WithArgs appends arguments after the configured extra_args, typically
// files to open.
func WithArgs(args ...string) Option {
	return func(p *Player) {
		p.args = append(p.args, args...)
	}
}
