package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"reelsync/internal/daemonctl"
	"reelsync/internal/daemonrun"
)

const (
	startWaitTimeout = 10 * time.Second
	stopGracePeriod  = 15 * time.Second
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "daemon",
		Short:        "Run the reelsync daemon (internal)",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: ctx.logLevel()})
		},
	}
}

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the reelsync daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startDaemon(cmd, ctx)
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the reelsync daemon and the scraper it launched",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := stopDaemon(cmd, ctx)
			return err
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the reelsync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := stopDaemon(cmd, ctx); err != nil {
				return err
			}
			return startDaemon(cmd, ctx)
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd}
}

func startDaemon(cmd *cobra.Command, ctx *commandContext) error {
	stdout := cmd.OutOrStdout()
	client, err := ctx.client()
	if err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	state, err := daemonctl.EnsureStarted(cmd.Context(), client, exe, daemonctl.LaunchOptions{
		ConfigPath: ctx.configPath(),
		LogLevel:   ctx.logLevel(),
	}, startWaitTimeout)
	if err != nil {
		return err
	}
	switch state {
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintln(stdout, "Daemon already running")
	default:
		fmt.Fprintln(stdout, "Daemon started")
	}
	return nil
}

func stopDaemon(cmd *cobra.Command, ctx *commandContext) (bool, error) {
	stdout := cmd.OutOrStdout()
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return false, err
	}
	result, err := daemonctl.Stop(cfg, stopGracePeriod)
	if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		fmt.Fprintln(stdout, "Daemon is not running")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if result.ForcedKill {
		fmt.Fprintf(stdout, "Daemon did not exit in %s; killed pid %d\n", stopGracePeriod, result.PID)
	}
	fmt.Fprintln(stdout, "Daemon stopped")
	return true, nil
}
