/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/resourceshare-ph/apiserver/config"
	"github.com/resourceshare-ph/apiserver/internal/events"
	"github.com/resourceshare-ph/apiserver/internal/kv"
	"github.com/resourceshare-ph/apiserver/internal/records"
	"github.com/resourceshare-ph/apiserver/internal/server"
	"github.com/resourceshare-ph/apiserver/internal/tabular"
	"github.com/spf13/cobra"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Merge the bulk CSV tables into the record store",
	Long: `Fetches the bulk CSV tables from the configured source and merges
them into the record collections, skipping rows already present.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := slog.New(slog.NewTextHandler(os.Stderr, nil))

		store, err := kv.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open data dir: %w", err)
		}

		source, err := server.OpenBulkSource(cmd.Context(), cfg.Bulk)
		if err != nil {
			return fmt.Errorf("open bulk source: %w", err)
		}

		loader := tabular.NewLoader(source, log)
		recordStore := records.NewStore(store, events.NewPublisher(events.Noop{}, log), log)

		added := recordStore.MergeAllBulk(cmd.Context(), loader)
		for _, table := range tabular.TableNames() {
			if n, ok := added[table]; ok {
				fmt.Printf("%s: %d rows added\n", table, n)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
