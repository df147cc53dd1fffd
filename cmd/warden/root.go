package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:   "warden",
		Short: "Warden daemon lifecycle manager",
		Long: "Warden supervises a long-running workload. Invoked with a verb it\n" +
			"controls the detached daemon; invoked bare it runs the workload\n" +
			"attached to the terminal until interrupted.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground(cmd, ctx)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override configured log level (debug, info, warn, error)")

	for _, cmd := range newLifecycleCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

func runForeground(cmd *cobra.Command, ctx *commandContext) error {
	ctl, err := ctx.controller(cmd)
	if err != nil {
		return err
	}
	stdout := cmd.OutOrStdout()
	if isTerminal(stdout) {
		fmt.Fprintln(stdout, "Running in the foreground; press Ctrl-C to stop.")
	}
	return ctl.Foreground(cmd.Context(), ctx.foregroundBoot())
}
