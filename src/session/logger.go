package session

import (
	"go.uber.org/zap"

	"github.com/grafeo-db/grafeo/src/common"
)

// NewZapLogger builds the database's default structured logger. A
// *zap.SugaredLogger already satisfies common.Logger's method set, so
// this is just the dev/prod split the server binary uses, given a home
// here instead of cli so a caller embedding the engine doesn't need to
// import the CLI package just to get a Database logging.
func NewZapLogger(debug bool) common.Logger {
	var z *zap.Logger
	var err error
	if debug {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return z.Sugar()
}
