package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mpvctl/internal/ipc"
)

var _ ipc.Recorder = (*Store)(nil)

// BeginSession registers a session and the socket it is attached to.
// Recording a frame for an unknown session creates the row implicitly, so
// calling BeginSession is optional.
func (s *Store) BeginSession(ctx context.Context, sessionID, socketPath string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("begin session: empty session id")
	}
	return s.exec(ctx,
		`INSERT INTO sessions (id, socket_path, started_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET socket_path = excluded.socket_path`,
		sessionID, nullString(socketPath), formatTime(time.Now()),
	)
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(ctx context.Context, sessionID string) error {
	return s.exec(ctx, "UPDATE sessions SET ended_at = ? WHERE id = ?", formatTime(time.Now()), sessionID)
}

// Record stores frame under sessionID.
func (s *Store) Record(ctx context.Context, sessionID string, frame ipc.Frame) error {
	ctx = ensureContext(ctx)
	at := frame.At
	if at.IsZero() {
		at = time.Now()
	}
	name, requestID := describe(frame)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO sessions (id, started_at) VALUES (?, ?)",
			sessionID, formatTime(at),
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, direction, kind, name, request_id, matched, raw, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, string(frame.Direction), frame.Kind(), nullString(name), requestID,
			boolToInt(frame.Matched), string(frame.Raw), formatTime(at),
		); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// describe extracts the display name and request id of a frame: the
// command name for commands, the logical name for events, and the error
// code for replies.
func describe(frame ipc.Frame) (string, sql.NullInt64) {
	switch {
	case frame.Direction == ipc.DirectionOut:
		var payload struct {
			Command []any `json:"command"`
		}
		name := ""
		if err := json.Unmarshal(frame.Raw, &payload); err == nil && len(payload.Command) > 0 {
			name = fmt.Sprint(payload.Command[0])
		}
		return name, sql.NullInt64{Int64: frame.RequestID, Valid: frame.RequestID != 0}
	case frame.Event != nil:
		return frame.Event.Name(), sql.NullInt64{}
	case frame.Reply != nil:
		id := sql.NullInt64{}
		if frame.Reply.RequestID != nil {
			id = sql.NullInt64{Int64: *frame.Reply.RequestID, Valid: true}
		}
		return frame.Reply.Error, id
	default:
		return "", sql.NullInt64{}
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw sql.NullString) time.Time {
	if !raw.Valid || raw.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
