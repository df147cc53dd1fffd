package main

import (
	"github.com/spf13/cobra"
)

func newLifecycleCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon detached from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := ctx.controller(cmd)
			if err != nil {
				return err
			}
			return ctl.Start(cmd.Context(), ctx.daemonBoot())
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon and wait for it to exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := ctx.controller(cmd)
			if err != nil {
				return err
			}
			return ctl.Stop()
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop the daemon if running, then start it again",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := ctx.controller(cmd)
			if err != nil {
				return err
			}
			return ctl.Restart(cmd.Context(), ctx.daemonBoot())
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := ctx.controller(cmd)
			if err != nil {
				return err
			}
			return ctl.Status()
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}
