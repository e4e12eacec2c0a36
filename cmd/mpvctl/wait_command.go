package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mpvctl/internal/ipc"
)

func newWaitCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "wait <event>...",
		Short: "Wait until every named event or script message has arrived",
		Long: "Wait until every named event or script message has arrived.\n\n" +
			"Names match generic events by their event name and script messages by their\n" +
			"first argument. Waits run concurrently; the command fails listing every name\n" +
			"that did not arrive within the timeout.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd.Context(), func(session *ipc.Session) error {
				var (
					mu      sync.Mutex
					seen    = make([]ipc.Event, len(args))
					missing []string
				)
				group, groupCtx := errgroup.WithContext(cmd.Context())
				for i, name := range args {
					group.Go(func() error {
						ev, ok := session.WaitForEvent(groupCtx, name, timeout)
						mu.Lock()
						defer mu.Unlock()
						if !ok {
							missing = append(missing, name)
							return nil
						}
						seen[i] = ev
						return nil
					})
				}
				if err := group.Wait(); err != nil {
					return err
				}
				if err := cmd.Context().Err(); err != nil {
					return err
				}

				if jsonOutput {
					views := make([]eventView, 0, len(seen))
					for _, ev := range seen {
						if ev != nil {
							views = append(views, viewEvent(ev))
						}
					}
					if err := writeJSON(cmd, views); err != nil {
						return err
					}
				} else {
					for _, ev := range seen {
						if ev != nil {
							fmt.Fprintln(cmd.OutOrStdout(), formatEvent(ev))
						}
					}
				}
				if len(missing) > 0 {
					return fmt.Errorf("no %s event within the timeout", strings.Join(orderedMissing(args, missing), ", "))
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-event timeout (default ipc.event_timeout_ms)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print matched events as JSON")
	return cmd
}

// orderedMissing returns missing in the order the names were requested.
func orderedMissing(requested, missing []string) []string {
	set := make(map[string]struct{}, len(missing))
	for _, name := range missing {
		set[name] = struct{}{}
	}
	out := make([]string, 0, len(missing))
	for _, name := range requested {
		if _, ok := set[name]; ok {
			out = append(out, name)
			delete(set, name)
		}
	}
	return out
}
