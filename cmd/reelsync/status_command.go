package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reelsync/internal/api"
	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/daemonctl"
	"reelsync/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, scraper, sync, and catalog status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil && !errors.Is(err, daemonctl.ErrAPIDisabled) {
				return err
			}

			status, err := fetchStatus(cmd.Context(), client, cfg)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd.OutOrStdout(), cfg, status, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw status document")
	return cmd
}

// fetchStatus asks the daemon for its status and falls back to reading the
// catalog and probing the scraper directly when the daemon is offline.
func fetchStatus(ctx context.Context, client *daemonctl.Client, cfg *config.Config) (api.DaemonStatus, error) {
	if client != nil {
		status, err := client.Status(ctx)
		if err == nil {
			return status, nil
		}
		if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
			return api.DaemonStatus{}, err
		}
	}

	status := api.DaemonStatus{
		LockFilePath:  cfg.LockPath(),
		CatalogDBPath: cfg.CatalogPath(),
		Supervisor: api.SupervisorStatus{
			State:      "not_started",
			ScraperURL: cfg.Scraper.BaseURL,
		},
		Sync: api.SyncStatus{State: "idle"},
	}
	status.Supervisor.Healthy = preflight.CheckScraperHealth(ctx, cfg.HealthURL()).Passed

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if store, err := catalog.Open(cfg); err == nil {
		if stats, statsErr := store.Stats(queryCtx); statsErr == nil {
			status.Catalog = api.FromCatalogStats(stats)
		}
		_ = store.Close()
	}
	return status, nil
}

func renderStatus(out io.Writer, cfg *config.Config, status api.DaemonStatus, colorize bool) {
	printSection(out, "Daemon", colorize)
	if status.Running {
		detail := fmt.Sprintf("Running (pid %d)", status.PID)
		if status.StartedAt != "" {
			detail += " since " + status.StartedAt
		}
		fmt.Fprintln(out, renderStatusLine("reelsync", statusOK, detail, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("reelsync", statusWarn, "Not running (run `reelsync start`)", colorize))
	}
	if status.NotificationsDropped > 0 {
		fmt.Fprintln(out, renderStatusLine("Notifications", statusWarn, fmt.Sprintf("%d dropped", status.NotificationsDropped), colorize))
	}
	fmt.Fprintln(out)

	printSection(out, "Scraper", colorize)
	reach := " unreachable"
	if status.Supervisor.Healthy {
		reach = " reachable"
	}
	fmt.Fprintln(out, renderStatusLine("Service", scraperKind(status.Supervisor), status.Supervisor.ScraperURL+reach, colorize))
	supervisorDetail := status.Supervisor.State
	if status.Supervisor.WorkDir != "" {
		supervisorDetail += " in " + status.Supervisor.WorkDir
	}
	fmt.Fprintln(out, renderStatusLine("Supervisor", statusInfo, supervisorDetail, colorize))
	fmt.Fprintln(out, renderStatusLine("Autostart", statusInfo, yesNo(cfg.Scraper.Autostart), colorize))
	fmt.Fprintln(out)

	printSection(out, "Sync", colorize)
	syncDetail := status.Sync.State
	if status.Sync.RunID != "" {
		syncDetail += " (run " + status.Sync.RunID + ")"
	}
	fmt.Fprintln(out, renderStatusLine("Run", syncStateKind(status.Sync.State), syncDetail, colorize))
	if last := status.Sync.LastRun; last != nil && len(last.Phases) > 0 {
		rows := make([][]string, 0, len(last.Phases))
		for _, phase := range last.Phases {
			note := phase.Reason
			if !phase.Skipped && note == "" {
				note = (time.Duration(phase.DurationMS) * time.Millisecond).String()
			}
			rows = append(rows, []string{
				phase.Name,
				strconv.Itoa(phase.Total),
				strconv.Itoa(phase.Succeeded),
				strconv.Itoa(phase.Failed),
				strconv.Itoa(phase.Abandoned),
				note,
			})
		}
		fmt.Fprint(out, renderTable([]string{"Phase", "Items", "OK", "Failed", "Abandoned", "Note"}, rows, 1, 2, 3, 4))
	}
	fmt.Fprintln(out)

	printSection(out, "Catalog", colorize)
	rows := [][]string{
		{"Total", strconv.Itoa(status.Catalog.Total)},
		{"Updated", strconv.Itoa(status.Catalog.Updated)},
		{"Pending", strconv.Itoa(status.Catalog.Pending)},
		{"Series", strconv.Itoa(status.Catalog.Series)},
		{"Still airing", strconv.Itoa(status.Catalog.Airing)},
		{"Episodes", strconv.Itoa(status.Catalog.Episodes)},
	}
	fmt.Fprint(out, renderTable([]string{"Metric", "Count"}, rows, 1))
}
