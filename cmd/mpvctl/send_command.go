package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mpvctl/internal/ipc"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration
	var allowError bool

	cmd := &cobra.Command{
		Use:   "send <command> [args...]",
		Short: "Send a raw mpv command and print the reply",
		Long: "Send a raw mpv command and print the reply as JSON.\n\n" +
			"Arguments that parse as JSON (numbers, true/false, objects) are sent as JSON values;\n" +
			"everything else is sent as a string.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := ipc.NewCommand(args[0], parseArgs(args[1:])...)
			return ctx.withSession(cmd.Context(), func(session *ipc.Session) error {
				reply, err := session.SendCommand(cmd.Context(), command, timeout)
				if err != nil {
					return err
				}
				if err := writeJSON(cmd, reply); err != nil {
					return err
				}
				if !reply.OK() && !allowError {
					return &ipc.CommandError{RequestID: reply.ID(), Command: command["command"], Code: reply.Error}
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Reply timeout (default ipc.command_timeout_ms)")
	cmd.Flags().BoolVar(&allowError, "allow-error", false, "Exit successfully even when mpv rejects the command")
	return cmd
}

func newGetCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "get <property>",
		Short: "Print a property value as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd.Context(), func(session *ipc.Session) error {
				reply, err := session.SendCommandOK(cmd.Context(), ipc.GetProperty(args[0]), timeout)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatData(reply.Data))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Reply timeout (default ipc.command_timeout_ms)")
	return cmd
}

func newSetCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "set <property> <value>",
		Short: "Set a property; JSON values are sent typed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd.Context(), func(session *ipc.Session) error {
				return session.SetProperty(cmd.Context(), args[0], parseArg(args[1]), timeout)
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Reply timeout (default ipc.command_timeout_ms)")
	return cmd
}

func newScriptMessageCommand(ctx *commandContext) *cobra.Command {
	var target string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "script-message [--to script] <args...>",
		Short: "Send a script message to every script or to one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := ipc.BroadcastScriptMessage(args...)
			if target != "" {
				command = ipc.ScriptMessageTo(target, args...)
			}
			return ctx.withSession(cmd.Context(), func(session *ipc.Session) error {
				_, err := session.SendCommandOK(cmd.Context(), command, timeout)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "Deliver only to the named script")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Reply timeout (default ipc.command_timeout_ms)")
	return cmd
}
