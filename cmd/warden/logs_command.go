package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"warden/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := logs.CurrentPath(cfg.Logging.Dir)
			if err != nil {
				if errors.Is(err, logs.ErrNoLogs) {
					fmt.Fprintln(cmd.OutOrStdout(), "No daemon logs recorded")
					return nil
				}
				return err
			}

			stdout := cmd.OutOrStdout()
			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(stdout, line)
			}
			if !follow {
				if len(result.Lines) == 0 {
					fmt.Fprintln(stdout, "No log entries available")
				}
				return nil
			}

			offset := result.Offset
			for {
				res, err := logs.Tail(cmd.Context(), path, logs.TailOptions{
					Offset: offset,
					Wait:   time.Second,
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				for _, line := range res.Lines {
					fmt.Fprintln(stdout, line)
				}
				offset = res.Offset
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show (0 starts at the end)")
	return cmd
}
