package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mpvctl/internal/ipc"
	"mpvctl/internal/logging"
	"mpvctl/internal/player"
	"mpvctl/internal/preflight"
)

func newLaunchCommand(ctx *commandContext) *cobra.Command {
	var socketPath string
	var watch bool

	cmd := &cobra.Command{
		Use:   "launch [mpv args...]",
		Short: "Start a headless mpv, attach to it and keep it running until interrupted",
		Long: "Start a headless mpv per the [player] configuration, attach to its IPC socket,\n" +
			"enable the configured events, load the configured scripts and wait for the\n" +
			"ready event. Extra arguments (such as files to open) are passed to mpv.\n" +
			"The player is terminated on Ctrl-C.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.log()
			if failure, failed := preflight.FirstFailure(preflight.LaunchChecks(cfg)); failed {
				return fmt.Errorf("cannot launch mpv: %s: %s", failure.Name, failure.Detail)
			}

			opts := []player.Option{player.WithArgs(args...), player.WithSocketPath(socketPath)}
			store, err := ctx.openTranscript()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
				opts = append(opts, player.WithRecorder(store))
			}

			p := player.New(cfg, logger, opts...)
			if store != nil {
				if err := store.BeginSession(cmd.Context(), p.ID(), p.SocketPath()); err != nil {
					logging.WarnWithContext(logger, "transcript session not registered", "transcript_begin_failed",
						logging.Error(err),
					)
				}
				defer func() { _ = store.EndSession(context.Background(), p.ID()) }()
			}

			session, err := p.Launch(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := p.Terminate(); err != nil {
					logging.WarnWithContext(logger, "player shutdown incomplete", "player_terminate_failed", logging.Error(err))
				}
			}()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mpv ready: session %s\n", p.ID())
			fmt.Fprintf(out, "socket: %s\n", p.SocketPath())
			fmt.Fprintf(out, "output: %s\n", p.OutputPath())

			var events <-chan ipc.Event
			if watch {
				ch, unsubscribe := session.Subscribe(256)
				defer unsubscribe()
				events = ch
			}
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-p.Exited():
					if err := p.ExitErr(); err != nil {
						return fmt.Errorf("mpv exited: %w", err)
					}
					return nil
				case ev, ok := <-events:
					if !ok {
						events = nil
						continue
					}
					fmt.Fprintln(out, formatEvent(ev))
				}
			}
		},
	}
	cmd.Flags().StringVar(&socketPath, "ipc-socket", "", "Socket path for the new player (default: unique path under paths.runtime_dir)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Print events while the player runs")
	return cmd
}
