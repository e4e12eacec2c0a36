package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Sessions returns every recorded session, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.socket_path, s.started_at, s.ended_at,
		       COUNT(m.id),
		       COALESCE(SUM(CASE WHEN m.kind = 'reply' AND m.matched = 0 THEN 1 ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess       Session
			socketPath sql.NullString
			startedRaw sql.NullString
			endedRaw   sql.NullString
		)
		if err := rows.Scan(&sess.ID, &socketPath, &startedRaw, &endedRaw, &sess.Messages, &sess.Unmatched); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.SocketPath = socketPath.String
		sess.StartedAt = parseTime(startedRaw)
		sess.EndedAt = parseTime(endedRaw)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// List returns the messages of one session in the order they were recorded.
func (s *Store) List(ctx context.Context, sessionID string) ([]Message, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, direction, kind, name, request_id, matched, raw, recorded_at
		FROM messages
		WHERE session_id = ?
		ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Prune removes sessions that started before cutoff along with their
// messages and returns how many sessions were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		bound := formatTime(cutoff)
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM messages WHERE session_id IN (SELECT id FROM sessions WHERE started_at < ?)", bound,
		); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE started_at < ?", bound)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("prune transcript: %w", err)
	}
	return removed, nil
}

func scanMessage(scanner interface{ Scan(dest ...any) error }) (Message, error) {
	var (
		msg         Message
		name        sql.NullString
		requestID   sql.NullInt64
		matched     int
		recordedRaw sql.NullString
	)
	if err := scanner.Scan(&msg.ID, &msg.SessionID, &msg.Direction, &msg.Kind, &name, &requestID, &matched, &msg.Raw, &recordedRaw); err != nil {
		return Message{}, err
	}
	msg.Name = name.String
	msg.RequestID = requestID.Int64
	msg.Matched = matched != 0
	msg.RecordedAt = parseTime(recordedRaw)
	return msg, nil
}
