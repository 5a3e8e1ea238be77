package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reelsync/internal/api"
	"reelsync/internal/daemonctl"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var component string
	var itemID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			streamCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, clientErr := daemonctl.NewFromConfig(cfg)
			if clientErr == nil {
				_, err := client.StreamLogs(streamCtx, daemonctl.StreamOptions{
					Lines:     lines,
					Follow:    follow,
					Component: component,
					ItemID:    itemID,
				}, func(evt api.LogEvent) {
					fmt.Fprintln(out, formatLogEvent(evt))
				})
				if err == nil || !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					return err
				}
			}

			if component != "" || itemID != "" {
				return errors.New("log filters need a running daemon")
			}
			if follow {
				fmt.Fprintln(cmd.ErrOrStderr(), "daemon not running; showing the last session log without following")
			}
			fileLines, err := daemonctl.TailFile(cfg.CurrentLogPath(), lines)
			if err != nil {
				return err
			}
			if len(fileLines) == 0 {
				fmt.Fprintln(out, "No log entries")
				return nil
			}
			for _, line := range fileLines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log events")
	cmd.Flags().StringVar(&component, "component", "", "Only show events from this component")
	cmd.Flags().StringVar(&itemID, "item", "", "Only show events for this catalog id")
	return cmd
}

func formatLogEvent(evt api.LogEvent) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp)
	b.WriteByte(' ')
	b.WriteString(fmt.Sprintf("%-5s", strings.ToUpper(evt.Level)))
	b.WriteByte(' ')
	if evt.Component != "" {
		b.WriteString(evt.Component)
		b.WriteString(": ")
	}
	b.WriteString(evt.Message)
	if evt.ItemID != "" {
		b.WriteString(" item=" + evt.ItemID)
	}
	if evt.Phase != "" {
		b.WriteString(" phase=" + evt.Phase)
	}
	writeLogFields(&b, evt.Fields)
	return b.String()
}

func writeLogFields(w io.StringWriter, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		_, _ = w.WriteString(" " + key + "=" + fields[key])
	}
}
