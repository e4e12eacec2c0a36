package ipc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EventClientMessage is the event mpv emits for script messages. Its first
// argument is the logical event name.
const EventClientMessage = "client-message"

// ReplySuccess is the error string mpv uses for a successful command.
const ReplySuccess = "success"

// Event is an unsolicited notification pushed by mpv. It is either a
// ScriptMessage or a GenericEvent.
type Event interface {
	// Name returns the logical event name used for matching waiters.
	Name() string
	isEvent()
}

// ScriptMessage is a client-message event. Args[0] names the message.
type ScriptMessage struct {
	Args []string
}

// Name returns the first argument, or "" when the message carried none.
func (m ScriptMessage) Name() string {
	if len(m.Args) == 0 {
		return ""
	}
	return m.Args[0]
}

func (ScriptMessage) isEvent() {}

// GenericEvent is any event other than client-message.
type GenericEvent struct {
	Event string
}

// Name returns the mpv event name.
func (e GenericEvent) Name() string { return e.Event }

func (GenericEvent) isEvent() {}

// Reply is mpv's answer to a command. RequestID is nil for replies that are
// not tied to a request.
type Reply struct {
	Error     string          `json:"error"`
	RequestID *int64          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// OK reports whether mpv accepted the command.
func (r Reply) OK() bool { return r.Error == ReplySuccess }

// ID returns the request id, or 0 when the reply carried none.
func (r Reply) ID() int64 {
	if r.RequestID == nil {
		return 0
	}
	return *r.RequestID
}

// Decode unmarshals the reply's data payload into v.
func (r Reply) Decode(v any) error {
	if len(r.Data) == 0 {
		return errors.New("reply has no data")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode reply data: %w", err)
	}
	return nil
}

// Command is an outbound command object. The session injects request_id.
type Command map[string]any

// envelope is the union of every inbound field the client understands.
type envelope struct {
	Event     *string         `json:"event"`
	Args      []string        `json:"args"`
	Error     string          `json:"error"`
	RequestID *int64          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// classify turns a decoded envelope into exactly one of an Event or a Reply.
func classify(env envelope) (Event, *Reply) {
	if env.Event != nil {
		if *env.Event == EventClientMessage {
			args := make([]string, len(env.Args))
			copy(args, env.Args)
			return ScriptMessage{Args: args}, nil
		}
		return GenericEvent{Event: *env.Event}, nil
	}
	return nil, &Reply{
		Error:     env.Error,
		RequestID: env.RequestID,
		Data:      env.Data,
	}
}

// decodeLine parses one framed line.
func decodeLine(line []byte) (Event, *Reply, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return nil, nil, errors.New("not a json object")
	}
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, nil, err
	}
	ev, reply := classify(env)
	return ev, reply, nil
}
