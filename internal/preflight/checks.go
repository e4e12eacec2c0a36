package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"mpvctl/internal/config"
	"mpvctl/internal/ipc"
	"mpvctl/internal/player"
)

// socketProbeTimeout bounds the connect and the version query of
// CheckSocket so `mpvctl check` stays quick when mpv is not running.
const socketProbeTimeout = time.Second

// CheckBinary verifies that command resolves to an executable.
func CheckBinary(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckScript verifies that a script handed to load-script is a readable
// file or directory.
func CheckScript(path string) Result {
	name := "Script"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (directory)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSocket dials the configured socket and asks mpv for its version.
// The result is optional: mpv not running is a normal state.
func CheckSocket(ctx context.Context, cfg *config.Config, logger *slog.Logger) Result {
	name := "mpv socket"
	address := cfg.IPC.SocketPath

	probeCtx, cancel := context.WithTimeout(ctx, socketProbeTimeout)
	defer cancel()

	opts := player.DialOptions(cfg, logger, ipc.WithConnectTimeout(socketProbeTimeout))
	conn, err := ipc.Dial(probeCtx, address, opts...)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (not reachable: %v)", address, err)}
	}
	session := conn.Start()
	defer session.Stop()

	var version string
	if err := session.GetProperty(probeCtx, "mpv-version", &version, socketProbeTimeout); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (connected, version query failed: %v)", address, err)}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: fmt.Sprintf("%s (%s)", address, version)}
}
