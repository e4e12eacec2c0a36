package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mpvctl/internal/transcript"
)

func newTranscriptCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "transcript [session]",
		Short: "List recorded sessions or show one session's messages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openTranscriptForRead(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				sessions, err := store.Sessions(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, sessions)
				}
				if len(sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No recorded sessions")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSessions(sessions))
				return nil
			}

			messages, err := store.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, messages)
			}
			if len(messages) == 0 {
				return fmt.Errorf("no messages recorded for session %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderMessages(messages))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	cmd.AddCommand(newTranscriptPruneCommand(ctx))
	return cmd
}

func newTranscriptPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			store, err := openTranscriptForRead(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d session(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Remove sessions started before now minus this duration")
	return cmd
}

// openTranscriptForRead opens the configured database even when recording
// is disabled, so earlier recordings stay readable.
func openTranscriptForRead(ctx *commandContext) (*transcript.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := transcript.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return store, nil
}

func renderSessions(sessions []transcript.Session) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ID,
			formatTimestamp(s.StartedAt),
			formatTimestamp(s.EndedAt),
			strconv.Itoa(s.Messages),
			strconv.Itoa(s.Unmatched),
			s.SocketPath,
		})
	}
	return renderTable(
		[]string{"Session", "Started", "Ended", "Messages", "Unmatched", "Socket"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func renderMessages(messages []transcript.Message) string {
	rows := make([][]string, 0, len(messages))
	for _, m := range messages {
		requestID := ""
		if m.RequestID != 0 {
			requestID = strconv.FormatInt(m.RequestID, 10)
		}
		matched := ""
		if m.Kind == "reply" {
			matched = yesNo(m.Matched)
		}
		rows = append(rows, []string{
			m.RecordedAt.Local().Format("15:04:05.000"),
			titleCaser.String(m.Kind),
			m.Name,
			requestID,
			matched,
			truncateText(m.Raw, 80),
		})
	}
	return renderTable(
		[]string{"Time", "Kind", "Name", "Request", "Matched", "Raw"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
