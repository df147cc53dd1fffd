package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"warden/internal/journal"
)

const historyTimeFormat = "2006-01-02 15:04:05"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent daemon runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := journal.Open(ctx.configValue())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(stdout, "No runs recorded")
				return nil
			}

			colorize := isTerminal(stdout)
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, historyRow(run, colorize))
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"Run", "State", "Mode", "PID", "Started", "Uptime", "Beats", "Errors"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight},
			))

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, historySummary(stats))
			return nil
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))

	return historyCmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove finished runs older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			retention := days
			if retention < 0 {
				retention = cfg.Journal.RetentionDays
				if retention <= 0 {
					return fmt.Errorf("journal retention is disabled; pass --days to prune explicitly")
				}
			}

			store, err := journal.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			cutoff := time.Now().AddDate(0, 0, -retention)
			removed, err := store.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d finished runs\n", removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", -1, "Retention window in days (defaults to journal.retention_days)")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := journal.Open(ctx.configValue())
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d recorded runs\n", removed)
			return nil
		},
	}
}

func historyRow(run *journal.Run, colorize bool) []string {
	uptime := "-"
	if d := run.Uptime(time.Now()); d > 0 {
		uptime = d.Round(time.Second).String()
	}
	return []string{
		shortRunID(run.RunID),
		colorizeState(run.State, colorize),
		run.Mode,
		strconv.Itoa(run.PID),
		run.StartedAt.Local().Format(historyTimeFormat),
		uptime,
		strconv.FormatInt(run.Beats, 10),
		strconv.FormatInt(run.RunErrors, 10),
	}
}

// shortRunID trims a UUID to its first group, which is plenty to tell runs
// apart in a terminal table.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func historySummary(stats map[journal.RunState]int) string {
	total := 0
	parts := make([]string, 0, len(stats))
	for _, state := range []journal.RunState{
		journal.RunStateRunning,
		journal.RunStateStopping,
		journal.RunStateStopped,
		journal.RunStateEscalated,
		journal.RunStateFailed,
	} {
		count := stats[state]
		if count == 0 {
			continue
		}
		total += count
		parts = append(parts, fmt.Sprintf("%d %s", count, state))
	}
	if total == 0 {
		return "0 runs"
	}
	noun := "runs"
	if total == 1 {
		noun = "run"
	}
	return fmt.Sprintf("%d %s: %s", total, noun, strings.Join(parts, ", "))
}
