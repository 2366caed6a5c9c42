package app

import (
	"context"

	"github.com/grafeo-db/grafeo/src/cli"
	"github.com/grafeo-db/grafeo/src/session"
)

var rootCmd = cli.Init("grafeoctl")

func MustExecute(ctx context.Context) {
	initInfo()
	initStats()
	initSchema()
	initValidate()
	initWal()
	initSave()
	initBackup()
	initData()
	initCompact()

	rootCmd.MustExecute(ctx)
}

// openDatabase loads configuration from the root command's --config flag
// and opens the database it names.
func openDatabase() (*session.Database, error) {
	cfg, err := cli.LoadConfig(rootCmd.Options.ConfigPath, rootCmd.Options.Debug)
	if err != nil {
		return nil, err
	}
	return session.Open(cfg)
}
