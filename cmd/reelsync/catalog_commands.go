package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelsync/internal/api"
	"reelsync/internal/catalog"
	"reelsync/internal/daemonctl"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and seed the local catalog",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogAddCommand(ctx))
	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := listCatalog(cmd.Context(), ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			if len(resp.Items) == 0 {
				fmt.Fprintln(out, "Catalog is empty")
				return nil
			}
			rows := make([][]string, 0, len(resp.Items))
			for _, item := range resp.Items {
				rows = append(rows, catalogRow(item))
			}
			fmt.Fprint(out, renderTable([]string{"ID", "Title", "Type", "Years", "Seasons", "Status"}, rows, 4))
			fmt.Fprintf(out, "%d items (%d updated, %d pending, %d airing)\n",
				resp.Stats.Total, resp.Stats.Updated, resp.Stats.Pending, resp.Stats.Airing)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print items as JSON")
	return cmd
}

// listCatalog prefers the daemon and reads the database directly when the
// daemon is not running.
func listCatalog(cmdCtx context.Context, ctx *commandContext) (api.CatalogListResponse, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return api.CatalogListResponse{}, err
	}
	if client, clientErr := daemonctl.NewFromConfig(cfg); clientErr == nil {
		resp, err := client.Catalog(cmdCtx)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
			return api.CatalogListResponse{}, err
		}
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		return api.CatalogListResponse{}, err
	}
	defer store.Close()
	items, err := store.ListItems(cmdCtx)
	if err != nil {
		return api.CatalogListResponse{}, err
	}
	stats, err := store.Stats(cmdCtx)
	if err != nil {
		return api.CatalogListResponse{}, err
	}
	return api.CatalogListResponse{Items: api.FromCatalogItems(items), Stats: api.FromCatalogStats(stats)}, nil
}

func catalogRow(item api.CatalogItem) []string {
	years := ""
	if item.StartYear > 0 {
		years = strconv.Itoa(item.StartYear) + "-"
		if item.EndYear > 0 {
			years += strconv.Itoa(item.EndYear)
		}
	}
	seasons := ""
	if item.SeasonCount > 0 {
		seasons = strconv.Itoa(item.SeasonCount)
	}
	status := "pending"
	switch {
	case item.StillAiring:
		status = "airing"
	case item.Updated:
		status = "updated"
	}
	return []string{item.ID, item.Title, item.TitleType, years, seasons, status}
}

func newCatalogAddCommand(ctx *commandContext) *cobra.Command {
	var restart bool
	cmd := &cobra.Command{
		Use:   "add <id>...",
		Short: "Add catalog ids to be filled in by the next sync",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(args))
			for _, arg := range args {
				for _, id := range strings.Split(arg, ",") {
					if id = strings.TrimSpace(id); id != "" {
						ids = append(ids, id)
					}
				}
			}
			if len(ids) == 0 {
				return errors.New("no catalog ids given")
			}

			store, err := catalog.Open(cfg)
			if err != nil {
				return err
			}
			added, err := store.AddItems(cmd.Context(), ids...)
			closeErr := store.Close()
			if err != nil {
				return err
			}
			if closeErr != nil {
				return closeErr
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %d of %d ids (%d already present)\n", added, len(ids), len(ids)-added)
			if !restart || added == 0 {
				return nil
			}
			client, err := daemonctl.NewFromConfig(cfg)
			if err != nil {
				return nil
			}
			resp, err := client.RestartSync(cmd.Context())
			switch {
			case errors.Is(err, daemonctl.ErrDaemonNotRunning):
				fmt.Fprintln(out, "Daemon not running; items will sync on next start")
			case err != nil:
				return err
			default:
				fmt.Fprintf(out, "Sync restarted (run %s)\n", resp.RunID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&restart, "sync", true, "Restart the daemon's sync so new ids are picked up")
	return cmd
}
