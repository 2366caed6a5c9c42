package app

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/grafeo-db/grafeo/src/cli"
)

func initInfo() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Print database mode, counts, and persistence state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			defer db.Close()

			info := db.Info()
			fmt.Printf("id:             %s\n", info.ID)
			fmt.Printf("mode:           %s\n", info.Mode)
			if info.Path != "" {
				fmt.Printf("path:           %s\n", info.Path)
			}
			fmt.Printf("nodes:          %s\n", humanize.Comma(int64(info.NodeCount)))
			fmt.Printf("edges:          %s\n", humanize.Comma(int64(info.EdgeCount)))
			fmt.Printf("read_only:      %v\n", info.ReadOnly)
			fmt.Printf("backward_edges: %v\n", info.BackwardEdges)
			return nil
		},
	})
}
