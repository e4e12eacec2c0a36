package ipc

import (
	"context"
	"time"
)

// Direction marks whether a frame was sent or received.
type Direction string

const (
	DirectionOut Direction = "out"
	DirectionIn  Direction = "in"
)

// Frame is one line that crossed the socket, as seen by a Recorder.
type Frame struct {
	Direction Direction
	At        time.Time
	Raw       []byte
	// Event is set for inbound events.
	Event Event
	// Reply is set for inbound replies.
	Reply *Reply
	// RequestID is set for outbound commands.
	RequestID int64
	// Matched reports whether an inbound frame woke a waiting caller.
	Matched bool
}

// Kind returns "command", "event" or "reply".
func (f Frame) Kind() string {
	switch {
	case f.Direction == DirectionOut:
		return "command"
	case f.Event != nil:
		return "event"
	default:
		return "reply"
	}
}

// Recorder receives every frame of a session. Record is called from the
// reader goroutine for inbound frames and from the caller for outbound
// ones, so implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, sessionID string, frame Frame) error
}
