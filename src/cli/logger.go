package cli

import (
	"go.uber.org/zap"

	"github.com/grafeo-db/grafeo/src/session"
)

// NewLogger builds the structured logger grafeoctl's own command-result
// reporting uses, independent of any Database -- MustExecute needs one
// even when openDatabase never got far enough to build a Database's own
// logger. It delegates to the same dev/prod split session.NewZapLogger
// gives the engine.
func NewLogger(debug bool) *zap.SugaredLogger {
	return session.NewZapLogger(debug).(*zap.SugaredLogger)
}
