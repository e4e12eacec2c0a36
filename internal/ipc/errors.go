package ipc

import (
	"errors"
	"fmt"
	"io"
	"net"
)

var (
	// ErrConnectionTimeout reports that Dial gave up waiting for the socket
	// to accept connections.
	ErrConnectionTimeout = errors.New("ipc connection timeout")
	// ErrNotRunning reports an operation on a session whose reader is not
	// running, either because Stop was called or the socket failed.
	ErrNotRunning = errors.New("ipc session is not running")
	// ErrCommandTimeout reports that no reply arrived for a command in time.
	ErrCommandTimeout = errors.New("ipc command timeout")
	// ErrClosed reports a write on a socket that has already been closed.
	ErrClosed = errors.New("ipc connection closed")
)

// closedWriteError maps the errors a write on a closed socket produces to
// ErrClosed, keeping the original as detail.
func closedWriteError(err error) error {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return err
}

// CommandError is returned by SendCommandOK when mpv answers a command with
// anything other than "success".
type CommandError struct {
	RequestID int64
	Command   any
	Code      string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("mpv command %v (request %d) failed: %s", e.Command, e.RequestID, e.Code)
}
