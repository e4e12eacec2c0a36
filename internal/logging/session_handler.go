package logging

import (
	"context"
	"log/slog"
)

// FieldSessionID is the standardized structured logging key for IPC session identifiers.
const FieldSessionID = "session_id"

// sessionIDHandler tags every record with session_id. The attribute is
// attached once at the top level, so it stays outside any group opened
// later with WithGroup.
type sessionIDHandler struct {
	base slog.Handler
}

func newSessionIDHandler(base slog.Handler, sessionID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	return sessionIDHandler{base: base.WithAttrs([]slog.Attr{slog.String(FieldSessionID, sessionID)})}
}

func (h sessionIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h sessionIDHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.base.Handle(ctx, record)
}

func (h sessionIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return sessionIDHandler{base: h.base.WithAttrs(attrs)}
}

func (h sessionIDHandler) WithGroup(name string) slog.Handler {
	return sessionIDHandler{base: h.base.WithGroup(name)}
}

// WithSessionID returns a logger that tags every record with session_id.
func WithSessionID(logger *slog.Logger, sessionID string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if sessionID == "" {
		return logger
	}
	return slog.New(newSessionIDHandler(logger.Handler(), sessionID))
}
