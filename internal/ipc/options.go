package ipc

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mpvctl/internal/logging"
)

const (
	defaultNetwork        = "unix"
	defaultConnectTimeout = 5 * time.Second
	defaultCommandTimeout = 5 * time.Second
	defaultEventTimeout   = 5 * time.Second
	defaultPollInterval   = 100 * time.Millisecond
	defaultRetryDelay     = 10 * time.Millisecond
	defaultMaxLineBytes   = 1024 * 1024
	readChunkSize         = 4096
)

type options struct {
	network        string
	connectTimeout time.Duration
	commandTimeout time.Duration
	eventTimeout   time.Duration
	pollInterval   time.Duration
	retryDelay     time.Duration
	maxLineBytes   int
	sessionID      string
	logger         *slog.Logger
	recorder       Recorder
}

// Option customizes Dial and NewConn.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		network:        defaultNetwork,
		connectTimeout: defaultConnectTimeout,
		commandTimeout: defaultCommandTimeout,
		eventTimeout:   defaultEventTimeout,
		pollInterval:   defaultPollInterval,
		retryDelay:     defaultRetryDelay,
		maxLineBytes:   defaultMaxLineBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.sessionID == "" {
		o.sessionID = uuid.NewString()
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	return o
}

// WithNetwork selects the dial network. Defaults to "unix".
func WithNetwork(network string) Option {
	return func(o *options) {
		if network != "" {
			o.network = network
		}
	}
}

// WithConnectTimeout bounds how long Dial keeps retrying.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connectTimeout = d
		}
	}
}

// WithCommandTimeout sets the timeout used when SendCommand is called with 0.
func WithCommandTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.commandTimeout = d
		}
	}
}

// WithEventTimeout sets the timeout used when WaitForEvent is called with 0.
func WithEventTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.eventTimeout = d
		}
	}
}

// WithPollInterval sets the reader's receive timeout, which is also how
// quickly Stop is observed.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxLineBytes caps the size of a single inbound frame.
func WithMaxLineBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLineBytes = n
		}
	}
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(o *options) {
		o.sessionID = id
	}
}

// WithLogger attaches a logger. The session tags it with component and
// session_id.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRecorder mirrors every frame the session sends or receives to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}
