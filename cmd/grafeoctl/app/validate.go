package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grafeo-db/grafeo/src/cli"
)

func initValidate() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Run the integrity sweep over all live records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase()
			if err != nil {
				return cli.OperationalFailure(err)
			}
			defer db.Close()

			if err := db.Validate(); err != nil {
				return cli.OperationalFailure(err)
			}
			fmt.Println("validate: ok")
			return nil
		},
	})
}
