package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsync/internal/daemonctl"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Control the background catalog sync",
	}
	syncCmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Cancel the current sync run and start a new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				resp, err := client.RestartSync(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sync restarted (run %s)\n", resp.RunID)
				return nil
			})
		},
	})
	return syncCmd
}

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var criteria string
	var quantity int

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run a bulk scrape and add the results to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria = strings.TrimSpace(criteria)
			if criteria == "" {
				return errors.New("--criteria is required")
			}
			if quantity < 1 {
				return errors.New("--quantity must be at least 1")
			}
			return ctx.withClient(func(client *daemonctl.Client) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Scraping %d items matching %q...\n", quantity, criteria)
				resp, err := client.Scrape(cmd.Context(), criteria, quantity)
				if err != nil {
					return err
				}
				noun := "items"
				if resp.Inserted == 1 {
					noun = "item"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d new %s", resp.Inserted, noun)
				if resp.RunID != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "; sync restarted (run %s)", resp.RunID)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&criteria, "criteria", "", "Scraper search criteria (for example \"top rated\")")
	cmd.Flags().IntVarP(&quantity, "quantity", "n", 10, "Number of items to scrape")
	return cmd
}
