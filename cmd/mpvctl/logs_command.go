package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mpvctl/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var list bool

	cmd := &cobra.Command{
		Use:   "logs [player-id|latest]",
		Short: "Show the output of a player started with launch",
		Long: "Show the output of a player started with launch.\n\n" +
			"Without an id the most recent player is shown. An id prefix is accepted\n" +
			"when it is unique.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				outputs, err := logs.ListOutputs(cfg.Paths.LogDir)
				if err != nil {
					return err
				}
				if len(outputs) == 0 {
					fmt.Fprintln(out, "No player output")
					return nil
				}
				rows := make([][]string, 0, len(outputs))
				for _, o := range outputs {
					rows = append(rows, []string{o.ID, formatTimestamp(o.ModTime), strconv.FormatInt(o.Size, 10), o.Path})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Player", "Modified", "Bytes", "Path"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			}

			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			output, err := logs.ResolveOutput(cfg.Paths.LogDir, id)
			if err != nil {
				return err
			}
			tail, offset, err := logs.Last(output.Path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), output.Path, offset, cfg.PollInterval(), func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new output until interrupted")
	cmd.Flags().BoolVar(&list, "list", false, "List player output files instead")
	return cmd
}
