package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"mpvctl/internal/ipc"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var count int
	var buffer int
	var jsonOutput bool
	var enable []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd.Context(), func(session *ipc.Session) error {
				events, unsubscribe := session.Subscribe(buffer)
				defer unsubscribe()
				for _, name := range enable {
					if _, err := session.SendCommandOK(cmd.Context(), ipc.EnableEvent(name), 0); err != nil {
						return fmt.Errorf("enable event %q: %w", name, err)
					}
				}

				out := cmd.OutOrStdout()
				enc := json.NewEncoder(out)
				received := 0
				for {
					select {
					case <-cmd.Context().Done():
						return nil
					case ev, ok := <-events:
						if !ok {
							if err := session.Err(); err != nil {
								return fmt.Errorf("mpv connection lost: %w", err)
							}
							return nil
						}
						if jsonOutput {
							if err := enc.Encode(viewEvent(ev)); err != nil {
								return err
							}
						} else {
							fmt.Fprintln(out, formatEvent(ev))
						}
						received++
						if count > 0 && received >= count {
							return nil
						}
					}
				}
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Exit after this many events (0 streams forever)")
	cmd.Flags().IntVar(&buffer, "buffer", 256, "Events buffered before slow output starts dropping them")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print one JSON object per event")
	cmd.Flags().StringSliceVar(&enable, "enable", nil, "Send enable_event for these events after subscribing")
	return cmd
}
