// Package relay runs a helper program and streams its output into mpv as
// script messages, so a Lua script can follow a long-running subprocess
// line by line.
package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"mpvctl/internal/ipc"
	"mpvctl/internal/logging"
)

var commandContext = exec.CommandContext

// LineMessage is the first script-message argument of every relayed line.
const LineMessage = "process-line"

const maxLineBytes = 1024 * 1024

// Sender is the part of ipc.Session the relay needs.
type Sender interface {
	SendCommandOK(ctx context.Context, cmd ipc.Command, timeout time.Duration) (ipc.Reply, error)
}

// Relay forwards a program's combined stdout and stderr to one script.
type Relay struct {
	sender  Sender
	script  string
	timeout time.Duration
	logger  *slog.Logger
}

// New builds a relay that targets script. A zero timeout uses the
// session's command timeout for each message.
func New(sender Sender, script string, timeout time.Duration, logger *slog.Logger) *Relay {
	return &Relay{
		sender:  sender,
		script:  script,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "relay"),
	}
}

// Run starts program with args and sends each output line as
// `script-message-to <script> process-line <line>`. It returns the number
// of lines delivered. When mpv stops accepting messages the program is
// killed.
func (r *Relay) Run(ctx context.Context, program string, args ...string) (int, error) {
	if strings.TrimSpace(r.script) == "" {
		return 0, errors.New("relay target script required")
	}
	if strings.TrimSpace(program) == "" {
		return 0, errors.New("relay program required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := commandContext(runCtx, program, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", program, err)
	}
	r.logger.Debug("relay started",
		logging.String("program", program),
		logging.String("script", r.script),
		logging.Int("pid", cmd.Process.Pid),
	)

	lines := 0
	var sendErr error
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if _, err := r.sender.SendCommandOK(runCtx, ipc.ScriptMessageTo(r.script, LineMessage, line), r.timeout); err != nil {
			sendErr = fmt.Errorf("relay line %d: %w", lines+1, err)
			cancel()
			break
		}
		lines++
	}
	if sendErr == nil {
		if err := scanner.Err(); err != nil {
			sendErr = fmt.Errorf("read %s output: %w", program, err)
			cancel()
		}
	}

	waitErr := cmd.Wait()
	if sendErr != nil {
		return lines, sendErr
	}
	if waitErr != nil {
		return lines, fmt.Errorf("%s failed: %w", program, waitErr)
	}
	r.logger.Debug("relay finished", logging.String("program", program), logging.Int("lines", lines))
	return lines, nil
}
