package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grafeo-db/grafeo/src/cli"
)

func initWal() {
	walCmd := &cobra.Command{
		Use:   "wal",
		Short: "Inspect or checkpoint the write-ahead log",
	}

	walCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current segment number and last checkpoint epoch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			defer db.Close()

			status := db.WalStatus()
			if !status.Enabled {
				fmt.Println("wal: disabled (in-memory database)")
				return nil
			}
			fmt.Printf("current_segment:    %d\n", status.CurrentSegment)
			fmt.Printf("last_checkpoint_at: %d\n", status.LastCheckpointAt)
			return nil
		},
	})

	walCmd.AddCommand(&cobra.Command{
		Use:   "checkpoint",
		Short: "Write a checkpoint record and truncate superseded segments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			defer db.Close()

			lsn, err := db.WalCheckpoint()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			fmt.Printf("checkpoint written at lsn %d\n", lsn)
			return nil
		},
	})

	rootCmd.AddCommand(walCmd)
}
