package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"mpvctl/internal/logging"
)

// Conn is an open stream that has not started reading yet. Start turns it
// into a Session.
type Conn struct {
	nc   net.Conn
	opts options

	startOnce sync.Once
	session   *Session
}

// Dial connects to the mpv IPC socket at address. While the socket does not
// exist yet or refuses connections, Dial keeps retrying until the connect
// timeout elapses and then fails with ErrConnectionTimeout. Any other dial
// error is returned immediately.
func Dial(ctx context.Context, address string, opts ...Option) (*Conn, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := newOptions(opts)
	dialCtx, cancel := context.WithTimeout(ctx, o.connectTimeout)
	defer cancel()

	var dialer net.Dialer
	var lastErr error
	attempts := 0
	for {
		attempts++
		nc, err := dialer.DialContext(dialCtx, o.network, address)
		if err == nil {
			o.logger.Debug("ipc socket connected",
				logging.String("address", address),
				logging.Int("attempts", attempts),
			)
			return newConn(nc, o), nil
		}
		if dialCtx.Err() == nil && !notListening(err) {
			return nil, fmt.Errorf("dial %s: %w", address, err)
		}
		lastErr = err

		select {
		case <-dialCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s not ready after %s: %w", ErrConnectionTimeout, address, o.connectTimeout, lastErr)
		case <-time.After(o.retryDelay):
		}
	}
}

// NewConn adopts an already-open stream.
func NewConn(nc net.Conn, opts ...Option) *Conn {
	return newConn(nc, newOptions(opts))
}

func newConn(nc net.Conn, o options) *Conn {
	return &Conn{nc: nc, opts: o}
}

// SessionID returns the identifier the session will log and record under.
func (c *Conn) SessionID() string { return c.opts.sessionID }

// Start launches the background reader and returns the running session.
// Later calls return the same session.
func (c *Conn) Start() *Session {
	c.startOnce.Do(func() {
		c.session = newSession(c)
		c.session.start()
	})
	return c.session
}

// Close closes a connection that was never started. Use Session.Stop once
// Start has been called.
func (c *Conn) Close() error {
	if c.session != nil {
		return c.session.Stop()
	}
	return c.nc.Close()
}

// notListening reports the errors mpv produces before its IPC server is up:
// the socket path does not exist yet, or nothing accepts on it.
func notListening(err error) bool {
	return errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ECONNREFUSED)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
