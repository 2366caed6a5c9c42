package app

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/grafeo-db/grafeo/src/cli"
)

func initStats() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print detailed per-subsystem resource usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			defer db.Close()

			stats := db.DetailedStats()
			fmt.Printf("nodes:       %s\n", humanize.Comma(int64(stats.NodeCount)))
			fmt.Printf("edges:       %s\n", humanize.Comma(int64(stats.EdgeCount)))
			fmt.Printf("dictionary:  %s entries\n", humanize.Comma(int64(stats.DictionarySize)))
			return nil
		},
	})
}

func initSchema() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print interned labels, edge-types, and property keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			defer db.Close()

			schema := db.Schema()
			fmt.Printf("labels:        %v\n", schema.Labels)
			fmt.Printf("edge_types:    %v\n", schema.EdgeTypes)
			fmt.Printf("property_keys: %v\n", schema.PropertyKeys)
			return nil
		},
	})
}
