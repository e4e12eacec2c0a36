package transcript

import "time"

// Session summarizes one recorded IPC session.
type Session struct {
	ID         string
	SocketPath string
	StartedAt  time.Time
	EndedAt    time.Time
	Messages   int
	Unmatched  int
}

// Ended reports whether EndSession was recorded.
func (s Session) Ended() bool { return !s.EndedAt.IsZero() }

// Message is one recorded frame.
type Message struct {
	ID         int64
	SessionID  string
	Direction  string
	Kind       string
	Name       string
	RequestID  int64
	Matched    bool
	Raw        string
	RecordedAt time.Time
}
