package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mpvctl/internal/ipc"
	"mpvctl/internal/relay"
)

func newRelayCommand(ctx *commandContext) *cobra.Command {
	var target string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "relay --to <script> -- <program> [args...]",
		Short: "Run a program and forward its output lines to a script",
		Long: "Run a program and forward every line it prints (stdout and stderr) to one mpv\n" +
			"script as `script-message-to <script> " + relay.LineMessage + " <line>`.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				return fmt.Errorf("--to is required")
			}
			return ctx.withSession(cmd.Context(), func(session *ipc.Session) error {
				r := relay.New(session, target, timeout, ctx.log())
				lines, err := r.Run(cmd.Context(), args[0], args[1:]...)
				fmt.Fprintf(cmd.ErrOrStderr(), "relayed %d line(s) to %s\n", lines, target)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "Script that receives the lines")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-line reply timeout (default ipc.command_timeout_ms)")
	return cmd
}
