package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grafeo-db/grafeo/src/cli"
)

func initCompact() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "compact",
		Short: "Reclaim superseded versions and shrink adjacency lists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			defer db.Close()

			db.Compact()
			fmt.Println("compact: ok")
			return nil
		},
	})
}
