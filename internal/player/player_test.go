package player_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"mpvctl/internal/config"
	"mpvctl/internal/ipc"
	"mpvctl/internal/ipc/ipctest"
	"mpvctl/internal/logging"
	"mpvctl/internal/player"
	"mpvctl/internal/testsupport"
)

const (
	fakeMPVEnv      = "MPVCTL_FAKE_MPV"
	fakeMPVArgsFile = "MPVCTL_FAKE_MPV_ARGS"
)

// TestMain lets the test binary stand in for mpv: when fakeMPVEnv is set
// it serves the IPC socket named by --input-ipc-server until SIGTERM.
func TestMain(m *testing.M) {
	if os.Getenv(fakeMPVEnv) != "" {
		os.Exit(runFakeMPV(os.Args[1:]))
	}
	os.Exit(m.Run())
}

func runFakeMPV(args []string) int {
	if path := os.Getenv(fakeMPVArgsFile); path != "" {
		_ = os.WriteFile(path, []byte(strings.Join(args, "\n")), 0o644)
	}
	var socket string
	for _, arg := range args {
		if value, ok := strings.CutPrefix(arg, "--input-ipc-server="); ok {
			socket = value
		}
	}
	if socket == "" {
		fmt.Fprintln(os.Stderr, "fake mpv: no --input-ipc-server")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	srv, err := ipctest.Listen(socket)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fake mpv:", err)
		return 1
	}
	srv.Handle(func(req ipctest.Request) []string {
		var name string
		if len(req.Command) > 0 {
			name, _ = req.Command[0].(string)
		}
		switch name {
		case "get_property":
			return []string{ipctest.ReplyLine(req.ID, "success", "fake")}
		case "load-script":
			return []string{ipctest.ReplyLine(req.ID, "success", nil), ipctest.ScriptMessageLine("fake-ready")}
		default:
			return []string{ipctest.ReplyLine(req.ID, "success", nil)}
		}
	})
	go func() {
		for range srv.Requests() {
		}
	}()

	<-ctx.Done()
	srv.Close()
	return 0
}

func newPlayerConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	runtimeDir, err := os.MkdirTemp("", "mpvp")
	if err != nil {
		t.Fatalf("mkdir runtime dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(runtimeDir) })

	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithRuntimeDir(runtimeDir)}, opts...)...)
	cfg.Player.Binary = os.Args[0]
	return cfg
}

func TestLaunchAttachesAndRunsSetup(t *testing.T) {
	t.Setenv(fakeMPVEnv, "1")
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	t.Setenv(fakeMPVArgsFile, argsFile)

	cfg := newPlayerConfig(t)
	cfg.Player.EnableEvents = []string{"client-message"}
	cfg.Player.Scripts = []string{"/opt/scripts/webm.lua"}
	cfg.Player.ReadyEvent = "fake-ready"
	cfg.Player.ExtraArgs = []string{"--pause"}

	p := player.New(cfg, logging.NewNop(), player.WithArgs("/media/clip.mkv"))
	session, err := p.Launch(context.Background())
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	t.Cleanup(func() { _ = p.Terminate() })

	if session.ID() != p.ID() {
		t.Fatalf("session id %q != player id %q", session.ID(), p.ID())
	}
	if !strings.HasPrefix(p.SocketPath(), cfg.Paths.RuntimeDir) || !strings.Contains(p.SocketPath(), p.ID()) {
		t.Fatalf("unexpected socket path %q", p.SocketPath())
	}

	var version string
	if err := session.GetProperty(context.Background(), "mpv-version", &version, time.Second); err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if version != "fake" {
		t.Fatalf("unexpected property value %q", version)
	}
	// enable_event, load-script, get_property
	if got := session.LastRequestID(); got != 3 {
		t.Fatalf("expected 3 requests, last id %d", got)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	args := strings.Split(string(raw), "\n")
	want := []string{"-v", "--no-config", "--vo=null", "--ao=null", "--load-scripts=no", "--idle=yes", "--input-ipc-server=" + p.SocketPath(), "--pause", "/media/clip.mkv"}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Fatalf("mpv args = %v, want %v", args, want)
	}

	if err := p.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	select {
	case <-p.Exited():
	case <-time.After(2 * time.Second):
		t.Fatal("mpv did not exit")
	}
	for _, path := range []string{p.SocketPath(), p.SocketPath() + ".lock"} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s removed, stat err %v", path, err)
		}
	}
	if session.Running() {
		t.Fatal("expected session stopped")
	}
}

func TestLaunchReportsEarlyExit(t *testing.T) {
	cfg := newPlayerConfig(t)
	stub := filepath.Join(testsupport.BaseDir(cfg), "bin", "mpv")
	testsupport.WriteExecutable(t, stub, "echo 'bad option' >&2\nexit 3\n")
	cfg.Player.Binary = stub
	cfg.IPC.ConnectTimeoutMS = 10000

	p := player.New(cfg, logging.NewNop())
	start := time.Now()
	_, err := p.Launch(context.Background())
	if !errors.Is(err, player.ErrExited) {
		t.Fatalf("expected ErrExited, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("launch waited %s for a dead process", elapsed)
	}
	output, readErr := os.ReadFile(p.OutputPath())
	if readErr != nil {
		t.Fatalf("read mpv output: %v", readErr)
	}
	if !strings.Contains(string(output), "bad option") {
		t.Fatalf("expected stderr captured, got %q", output)
	}
	if _, err := os.Stat(p.SocketPath() + ".lock"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected lock file released, stat err %v", err)
	}
}

func TestStartRefusesLockedSocket(t *testing.T) {
	cfg := newPlayerConfig(t)
	stub := filepath.Join(testsupport.BaseDir(cfg), "bin", "mpv")
	testsupport.WriteExecutable(t, stub, "exec sleep 30\n")
	cfg.Player.Binary = stub
	socket := filepath.Join(cfg.Paths.RuntimeDir, "shared.sock")

	first := player.New(cfg, logging.NewNop(), player.WithSocketPath(socket))
	if err := first.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	t.Cleanup(func() { _ = first.Terminate() })

	second := player.New(cfg, logging.NewNop(), player.WithSocketPath(socket))
	if err := second.Start(); !errors.Is(err, player.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := first.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	third := player.New(cfg, logging.NewNop(), player.WithSocketPath(socket))
	if err := third.Start(); err != nil {
		t.Fatalf("Start after release: %v", err)
	}
	if err := third.Terminate(); err != nil {
		t.Fatalf("Terminate third: %v", err)
	}
}

func TestAttachFailsWithoutReadyEvent(t *testing.T) {
	t.Setenv(fakeMPVEnv, "1")
	cfg := newPlayerConfig(t)
	cfg.Player.ReadyEvent = "never-sent"
	cfg.IPC.EventTimeoutMS = 200

	p := player.New(cfg, logging.NewNop())
	_, err := p.Launch(context.Background())
	if !errors.Is(err, player.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	select {
	case <-p.Exited():
	case <-time.After(2 * time.Second):
		t.Fatal("expected mpv to be terminated after failed attach")
	}
}

func TestAttachStopsSessionWhenSetupFails(t *testing.T) {
	t.Setenv(fakeMPVEnv, "1")
	cfg := newPlayerConfig(t)
	cfg.Player.ReadyEvent = "never-sent"
	cfg.IPC.EventTimeoutMS = 200

	p := player.New(cfg, logging.NewNop())
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = p.Terminate() })

	if _, err := p.Attach(context.Background()); !errors.Is(err, player.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	session := p.Session()
	if session == nil {
		t.Fatal("expected the attached session to be retained")
	}
	if session.Running() {
		t.Fatal("expected session to be stopped after failed setup")
	}
	select {
	case <-session.Done():
	case <-time.After(time.Second):
		t.Fatal("reader still running after failed setup")
	}
}

func TestDialOptionsConnectToRunningPlayer(t *testing.T) {
	srv := ipctest.NewServer(t)
	srv.Handle(ipctest.Success(true))
	cfg := testsupport.NewConfig(t, testsupport.WithSocket(srv.Path()))

	conn, err := ipc.Dial(context.Background(), cfg.IPC.SocketPath, player.DialOptions(cfg, logging.NewNop(), ipc.WithSessionID("cli"))...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	session := conn.Start()
	defer session.Stop()

	if session.ID() != "cli" {
		t.Fatalf("expected extra option applied last, got id %q", session.ID())
	}
	var paused bool
	if err := session.GetProperty(context.Background(), "pause", &paused, 0); err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if !paused {
		t.Fatal("expected true from fake server")
	}
}
