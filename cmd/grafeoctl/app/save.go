package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grafeo-db/grafeo/src/cli"
)

func initSave() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "save [destination]",
		Short: "Snapshot the live graph to a new persistent database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			defer db.Close()

			if err := db.Save(args[0]); err != nil {
				return cli.OperationalFailure(err)
			}
			fmt.Printf("saved to %s\n", args[0])
			return nil
		},
	})
}

func initBackup() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "backup [destination]",
		Short: "Copy a persistent database's on-disk layout to destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			defer db.Close()

			if err := db.Backup(args[0]); err != nil {
				return cli.OperationalFailure(err)
			}
			fmt.Printf("backed up to %s\n", args[0])
			return nil
		},
	})
}
