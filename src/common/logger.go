package common

// Logger is the minimal structured-logging surface session.Database
// logs lifecycle events through (open, checkpoint, compact, validate).
// *zap.SugaredLogger already satisfies this method set; see
// session.NewZapLogger. Tests pass a no-op logger.
type Logger interface {
	Debugw(msg string, kv ...any)
	Infow(msg string, kv ...any)
	Warnw(msg string, kv ...any)
	Errorw(msg string, kv ...any)
	Sync() error
}

type noopLogger struct{}

func (noopLogger) Debugw(string, ...any) {}
func (noopLogger) Infow(string, ...any)  {}
func (noopLogger) Warnw(string, ...any)  {}
func (noopLogger) Errorw(string, ...any) {}
func (noopLogger) Sync() error           { return nil }

// NoopLogger returns a Logger that discards everything, used as the
// default when a caller does not supply one.
func NoopLogger() Logger { return noopLogger{} }
