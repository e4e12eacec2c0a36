package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mpvctl/internal/logging"
)

// Session is a started connection. It is safe for concurrent use by any
// number of goroutines.
type Session struct {
	conn    *Conn
	opts    options
	logger  *slog.Logger
	corr    *correlator
	running atomic.Bool

	writeMu sync.Mutex

	subMu      sync.Mutex
	subs       map[*subscriber]struct{}
	subsClosed bool

	done     chan struct{}
	errMu    sync.Mutex
	err      error
	stopOnce sync.Once
	stopErr  error
}

type subscriber struct {
	ch      chan Event
	dropped atomic.Int64
}

func newSession(c *Conn) *Session {
	logger := logging.WithSessionID(logging.NewComponentLogger(c.opts.logger, "ipc"), c.opts.sessionID)
	return &Session{
		conn:   c,
		opts:   c.opts,
		logger: logger,
		corr:   newCorrelator(),
		subs:   make(map[*subscriber]struct{}),
		done:   make(chan struct{}),
	}
}

func (s *Session) start() {
	s.running.Store(true)
	go s.readLoop()
	s.logger.Debug("ipc session started", logging.String("remote", remoteAddr(s.conn)))
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.opts.sessionID }

// Running reports whether the reader is still active.
func (s *Session) Running() bool { return s.running.Load() }

// Done is closed once the reader has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the read error that ended the session, if any.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Stop ends the reader, waits for it to exit and closes the socket. Callers
// still blocked in SendCommand or WaitForEvent are not woken; they run into
// their own timeouts.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		s.running.Store(false)
		<-s.done
		if err := s.conn.nc.Close(); err != nil && s.Err() == nil {
			s.stopErr = fmt.Errorf("close ipc socket: %w", err)
		}
		requests, waiters := s.corr.pendingCounts()
		s.logger.Debug("ipc session stopped",
			logging.Int("pending_requests", requests),
			logging.Int("pending_waiters", waiters),
		)
	})
	return s.stopErr
}

// SendCommand sends cmd with a fresh request id and blocks until the
// matching reply arrives. A timeout of 0 uses the session default. A reply
// whose error is not "success" is still returned as a Reply; use
// SendCommandOK to turn it into an error.
func (s *Session) SendCommand(ctx context.Context, cmd Command, timeout time.Duration) (Reply, error) {
	if !s.running.Load() {
		return Reply{}, ErrNotRunning
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = s.opts.commandTimeout
	}

	id, slot := s.corr.register()
	payload := make(map[string]any, len(cmd)+1)
	for k, v := range cmd {
		payload[k] = v
	}
	payload["request_id"] = id

	data, err := json.Marshal(payload)
	if err != nil {
		s.corr.cancel(id)
		return Reply{}, fmt.Errorf("encode request %d: %w", id, err)
	}
	s.record(Frame{Direction: DirectionOut, At: time.Now(), Raw: data, RequestID: id})
	if err := s.write(append(data, '\n'), timeout); err != nil {
		s.corr.cancel(id)
		return Reply{}, fmt.Errorf("send request %d: %w", id, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-slot:
		return reply, nil
	case <-timer.C:
		if !s.corr.cancel(id) {
			return <-slot, nil
		}
		s.logger.Debug("ipc command timed out",
			logging.Int64(logging.FieldRequestID, id),
			logging.Duration("timeout", timeout),
		)
		return Reply{}, fmt.Errorf("%w: request %d got no reply within %s", ErrCommandTimeout, id, timeout)
	case <-ctx.Done():
		if !s.corr.cancel(id) {
			return <-slot, nil
		}
		return Reply{}, ctx.Err()
	}
}

// SendCommandOK is SendCommand that also fails with a *CommandError when
// mpv rejects the command.
func (s *Session) SendCommandOK(ctx context.Context, cmd Command, timeout time.Duration) (Reply, error) {
	reply, err := s.SendCommand(ctx, cmd, timeout)
	if err != nil {
		return reply, err
	}
	if !reply.OK() {
		return reply, &CommandError{RequestID: reply.ID(), Command: cmd["command"], Code: reply.Error}
	}
	return reply, nil
}

// WaitForEvent returns the first logged event with the given logical name,
// or blocks until one arrives. It returns false when the timeout (0 uses the
// session default) or ctx expires first; that is an ordinary outcome, not a
// transport failure.
func (s *Session) WaitForEvent(ctx context.Context, name string, timeout time.Duration) (Event, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = s.opts.eventTimeout
	}

	ev, w := s.corr.watch(name)
	if w == nil {
		return ev, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-w.ch:
		return ev, true
	case <-timer.C:
	case <-ctx.Done():
	}
	if !s.corr.unwatch(name, w) {
		return <-w.ch, true
	}
	return nil, false
}

// Events returns a copy of every event received so far, in arrival order.
func (s *Session) Events() []Event { return s.corr.snapshotEvents() }

// UnmatchedReplies returns a copy of the replies no caller was waiting for.
func (s *Session) UnmatchedReplies() []Reply { return s.corr.snapshotUnmatched() }

// LastRequestID returns the most recently assigned request id.
func (s *Session) LastRequestID() int64 { return s.corr.lastRequestID() }

// Subscribe streams events as they arrive. Events are dropped for a
// subscriber whose buffer is full. The channel is closed when the session
// ends; the returned func unsubscribes.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &subscriber{ch: make(chan Event, buffer)}
	s.subMu.Lock()
	if s.subsClosed {
		close(sub.ch)
	} else {
		s.subs[sub] = struct{}{}
	}
	s.subMu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, sub)
			s.subMu.Unlock()
			if n := sub.dropped.Load(); n > 0 {
				logging.WarnWithContext(s.logger, "event subscriber fell behind", "ipc_subscriber_dropped",
					logging.Int64("dropped", n),
					logging.String(logging.FieldImpact, "some events were not streamed"),
					logging.String(logging.FieldErrorHint, "increase the subscriber buffer"),
				)
			}
		})
	}
}

func (s *Session) write(data []byte, timeout time.Duration) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if !s.running.Load() {
		return ErrNotRunning
	}
	if err := s.conn.nc.SetWriteDeadline(time.Now().Add(timeout)); err == nil {
		defer s.conn.nc.SetWriteDeadline(time.Time{}) //nolint:errcheck
	}
	_, err := s.conn.nc.Write(data)
	return closedWriteError(err)
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer s.closeSubscribers()
	defer s.running.Store(false)

	lines := newLineBuffer(s.opts.maxLineBytes)
	buf := make([]byte, readChunkSize)
	for s.running.Load() {
		if err := s.conn.nc.SetReadDeadline(time.Now().Add(s.opts.pollInterval)); err != nil {
			s.fail(err)
			return
		}
		n, err := s.conn.nc.Read(buf)
		if n > 0 {
			complete, dropped := lines.feed(buf[:n])
			if dropped > 0 {
				logging.WarnWithContext(s.logger, "discarded oversized ipc frame", "ipc_frame_oversized",
					logging.Int("max_line_bytes", s.opts.maxLineBytes),
					logging.String(logging.FieldImpact, "a message from mpv was ignored"),
					logging.String(logging.FieldErrorHint, "raise ipc.max_line_bytes"),
				)
			}
			if len(complete) > 0 {
				s.dispatch(complete)
			}
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			s.fail(err)
			return
		}
	}
}

func (s *Session) fail(err error) {
	if !s.running.Load() {
		return
	}
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
	s.running.Store(false)
	logging.WarnWithContext(s.logger, "ipc read failed; session ended", "ipc_read_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "pending commands and event waits will time out"),
		logging.String(logging.FieldErrorHint, "check whether mpv exited or closed its IPC socket"),
	)
}

func (s *Session) dispatch(lines [][]byte) {
	batch := make([]inbound, 0, len(lines))
	for _, line := range lines {
		ev, reply, err := decodeLine(line)
		if err != nil {
			s.logger.Debug("skipping malformed ipc line",
				logging.String(logging.FieldEventType, "ipc_malformed_line"),
				logging.String("line", truncate(line, 200)),
				logging.Error(err),
			)
			continue
		}
		batch = append(batch, inbound{raw: line, event: ev, reply: reply})
	}
	if len(batch) == 0 {
		return
	}
	s.corr.resolve(batch)

	now := time.Now()
	for _, msg := range batch {
		s.record(Frame{Direction: DirectionIn, At: now, Raw: msg.raw, Event: msg.event, Reply: msg.reply, Matched: msg.matched})
		if msg.event != nil {
			s.publish(msg.event)
		}
	}
}

func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for sub := range s.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subsClosed = true
	for sub := range s.subs {
		close(sub.ch)
		delete(s.subs, sub)
	}
}

func (s *Session) record(frame Frame) {
	if s.opts.recorder == nil {
		return
	}
	if err := s.opts.recorder.Record(context.Background(), s.opts.sessionID, frame); err != nil {
		s.logger.Debug("transcript record failed",
			logging.String(logging.FieldEventType, "ipc_record_failed"),
			logging.String("kind", frame.Kind()),
			logging.Error(err),
		)
	}
}

func remoteAddr(c *Conn) string {
	if addr := c.nc.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func truncate(line []byte, max int) string {
	if len(line) <= max {
		return string(line)
	}
	return string(line[:max]) + "..."
}
