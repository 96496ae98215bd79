/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/resourceshare-ph/apiserver/config"
	"github.com/resourceshare-ph/apiserver/internal/directory"
	"github.com/resourceshare-ph/apiserver/internal/events"
	"github.com/resourceshare-ph/apiserver/internal/kv"
	"github.com/resourceshare-ph/apiserver/internal/records"
	"github.com/resourceshare-ph/apiserver/internal/server"
	"github.com/resourceshare-ph/apiserver/internal/tabular"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <table>",
	Short: "Write a collection to stdout as CSV",
	Long: `Writes one collection (resources, requests, kitchens, transport or
users) to stdout as CSV. The users export never includes password
digests.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]
		headers := tabular.ExportHeaders(table)
		if headers == nil {
			return fmt.Errorf("unknown table %q", table)
		}

		cfg := config.LoadConfig()
		log := slog.New(slog.NewTextHandler(os.Stderr, nil))

		store, err := kv.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open data dir: %w", err)
		}

		var rows []tabular.Row
		if table == "users" {
			source, err := server.OpenBulkSource(cmd.Context(), cfg.Bulk)
			if err != nil {
				return fmt.Errorf("open bulk source: %w", err)
			}
			dir := directory.New(tabular.NewLoader(source, log), store, log)
			rows = dir.ExportRows(cmd.Context())
		} else {
			recordStore := records.NewStore(store, events.NewPublisher(events.Noop{}, log), log)
			rows = recordStore.ExportRows(cmd.Context(), table)
		}

		return tabular.WriteCSV(os.Stdout, headers, rows)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
