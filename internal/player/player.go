package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mpvctl/internal/config"
	"mpvctl/internal/ipc"
	"mpvctl/internal/logging"
	"mpvctl/internal/logs"
)

var execCommand = exec.Command

const terminateGrace = 5 * time.Second

var (
	// ErrLocked reports that another launcher owns the socket path.
	ErrLocked = errors.New("ipc socket is owned by another mpvctl process")
	// ErrExited reports that mpv exited before the session was ready.
	ErrExited = errors.New("mpv exited")
	// ErrNotReady reports that the configured ready event never arrived.
	ErrNotReady = errors.New("mpv did not signal readiness")
)

// Player is one managed mpv process.
type Player struct {
	cfg      *config.Config
	logger   *slog.Logger
	id       string
	recorder ipc.Recorder
	args     []string

	socketPath string
	lockPath   string
	outputPath string
	lock       *flock.Flock

	mu      sync.Mutex
	cmd     *exec.Cmd
	output  *os.File
	session *ipc.Session
	exited  chan struct{}
	waitErr error
}

// New prepares a player. Nothing is started until Launch or Start.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Player {
	id := uuid.NewString()
	p := &Player{
		cfg:    cfg,
		id:     id,
		exited: make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.socketPath == "" {
		p.socketPath = filepath.Join(cfg.Paths.RuntimeDir, "mpvsocket-"+id)
	}
	p.lockPath = p.socketPath + ".lock"
	p.outputPath = logs.OutputPath(cfg.Paths.LogDir, id)
	p.lock = flock.New(p.lockPath)
	p.logger = logging.WithSessionID(logging.NewComponentLogger(logger, "player"), id)
	return p
}

// ID returns the identifier shared by the socket name, the ipc session and
// the transcript.
func (p *Player) ID() string { return p.id }

// SocketPath returns the IPC socket mpv is told to listen on.
func (p *Player) SocketPath() string { return p.socketPath }

// OutputPath returns the file receiving mpv's stdout and stderr.
func (p *Player) OutputPath() string { return p.outputPath }

// Exited is closed when the mpv process has exited.
func (p *Player) Exited() <-chan struct{} { return p.exited }

// Session returns the attached session, or nil before Attach.
func (p *Player) Session() *ipc.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Args returns the full mpv argument list.
func (p *Player) Args() []string {
	args := []string{
		"-v",
		"--no-config",
		"--vo=null",
		"--ao=null",
		"--load-scripts=no",
		"--idle=yes",
		"--input-ipc-server=" + p.socketPath,
	}
	args = append(args, p.cfg.Player.ExtraArgs...)
	return append(args, p.args...)
}

// Launch starts mpv and attaches to it. On failure the process is
// terminated.
func (p *Player) Launch(ctx context.Context) (*ipc.Session, error) {
	if err := p.Start(); err != nil {
		return nil, err
	}
	session, err := p.Attach(ctx)
	if err != nil {
		_ = p.Terminate()
		return nil, err
	}
	return session, nil
}

// Start takes the socket lock and spawns mpv.
func (p *Player) Start() error {
	for _, dir := range []string{filepath.Dir(p.socketPath), p.cfg.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	ok, err := p.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire socket lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, p.socketPath)
	}

	// A socket left behind by a crashed launcher would make Dial connect to nothing.
	if err := os.Remove(p.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = p.lock.Unlock()
		return fmt.Errorf("remove stale socket: %w", err)
	}

	output, err := os.OpenFile(p.outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = p.lock.Unlock()
		return fmt.Errorf("open mpv output log: %w", err)
	}

	cmd := execCommand(p.cfg.Player.Binary, p.Args()...) //nolint:gosec
	cmd.Stdout = output
	cmd.Stderr = output
	if err := cmd.Start(); err != nil {
		_ = output.Close()
		_ = p.lock.Unlock()
		return fmt.Errorf("start %s: %w", p.cfg.Player.Binary, err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.output = output
	p.mu.Unlock()

	p.logger.Info("mpv started",
		logging.String(logging.FieldEventType, "player_started"),
		logging.Int("pid", cmd.Process.Pid),
		logging.String("socket", p.socketPath),
		logging.String("output", p.outputPath),
	)

	go p.wait(cmd, output)
	return nil
}

func (p *Player) wait(cmd *exec.Cmd, output *os.File) {
	err := cmd.Wait()
	_ = output.Close()
	p.mu.Lock()
	p.waitErr = err
	p.mu.Unlock()
	close(p.exited)
	p.logger.Debug("mpv exited", logging.String(logging.FieldEventType, "player_exited"), logging.Any("result", err))
}

// ExitErr returns the process exit result once Exited is closed.
func (p *Player) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Attach connects to the running mpv and performs the configured setup.
// Dialing is abandoned as soon as the process exits.
func (p *Player) Attach(ctx context.Context) (*ipc.Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	attachCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.exited:
			cancel()
		case <-attachCtx.Done():
		}
	}()

	opts := DialOptions(p.cfg, p.logger, ipc.WithSessionID(p.id))
	if p.recorder != nil {
		opts = append(opts, ipc.WithRecorder(p.recorder))
	}
	conn, err := ipc.Dial(attachCtx, p.socketPath, opts...)
	if err != nil {
		return nil, p.exitedOr(err)
	}
	session := conn.Start()
	p.mu.Lock()
	p.session = session
	p.mu.Unlock()

	if err := p.setup(attachCtx, session); err != nil {
		_ = session.Stop()
		return nil, p.exitedOr(err)
	}
	p.logger.Info("mpv attached",
		logging.String(logging.FieldEventType, "player_attached"),
		logging.Int("scripts", len(p.cfg.Player.Scripts)),
	)
	return session, nil
}

func (p *Player) setup(ctx context.Context, session *ipc.Session) error {
	for _, name := range p.cfg.Player.EnableEvents {
		if _, err := session.SendCommandOK(ctx, ipc.EnableEvent(name), 0); err != nil {
			return fmt.Errorf("enable event %q: %w", name, err)
		}
	}
	for _, script := range p.cfg.Player.Scripts {
		if _, err := session.SendCommandOK(ctx, ipc.LoadScript(script), 0); err != nil {
			return fmt.Errorf("load script %s: %w", script, err)
		}
	}
	if ready := p.cfg.Player.ReadyEvent; ready != "" {
		if _, ok := session.WaitForEvent(ctx, ready, 0); !ok {
			return fmt.Errorf("%w: no %q event within %s", ErrNotReady, ready, p.cfg.EventTimeout())
		}
	}
	return nil
}

func (p *Player) exitedOr(err error) error {
	select {
	case <-p.exited:
		return fmt.Errorf("%w before attach completed (%v): see %s", ErrExited, p.ExitErr(), p.outputPath)
	default:
		return err
	}
}

// Terminate stops the session, asks mpv to exit with SIGTERM, kills it
// after a grace period and releases the socket. It is safe to call more
// than once.
func (p *Player) Terminate() error {
	p.mu.Lock()
	session := p.session
	cmd := p.cmd
	p.mu.Unlock()

	var errs []error
	if session != nil {
		if err := session.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if cmd != nil && cmd.Process != nil {
		select {
		case <-p.exited:
		default:
			if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
				errs = append(errs, fmt.Errorf("signal mpv: %w", err))
			}
			select {
			case <-p.exited:
			case <-time.After(terminateGrace):
				logging.WarnWithContext(p.logger, "mpv ignored SIGTERM; killing", "player_kill",
					logging.Duration("grace", terminateGrace),
					logging.String(logging.FieldImpact, "mpv was stopped forcefully"),
				)
				_ = cmd.Process.Kill()
				<-p.exited
			}
		}
	}

	if err := os.Remove(p.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove socket: %w", err))
	}
	if p.lock.Locked() {
		if err := p.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release socket lock: %w", err))
		}
		_ = os.Remove(p.lockPath)
	}
	return errors.Join(errs...)
}
