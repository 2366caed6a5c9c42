package cli

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/grafeo-db/grafeo/src/session"
)

// EnvConfig mirrors session.Config at the process-configuration boundary,
// loaded from a .env file plus GRAFEO_-prefixed environment variables
// (spec.md §6's configuration keys).
type EnvConfig struct {
	Path          string `split_words:"true"`
	MemoryLimit   int64  `split_words:"true"`
	Threads       int    `split_words:"true"`
	SyncMode      string `split_words:"true" default:"normal"`
	ReadOnly      bool   `split_words:"true"`
	BackwardEdges bool   `split_words:"true" default:"true"`
}

// LoadConfig loads .env (if present at path) then env vars into an
// EnvConfig, returning the session.Config the engine actually consumes.
// A missing .env file is not an error -- recognized environment
// variables and defaults still apply. debug selects the development
// (human-readable) logger over the default JSON one.
func LoadConfig(path string, debug bool) (session.Config, error) {
	if path != "" {
		_ = godotenv.Load(path)
	} else {
		_ = godotenv.Load()
	}

	var env EnvConfig
	if err := envconfig.Process("GRAFEO", &env); err != nil {
		return session.Config{}, err
	}

	backwardEdges := env.BackwardEdges
	return session.Config{
		Path:          env.Path,
		MemoryLimit:   env.MemoryLimit,
		Threads:       env.Threads,
		SyncMode:      session.SyncMode(env.SyncMode),
		ReadOnly:      env.ReadOnly,
		BackwardEdges: &backwardEdges,
		Logger:        session.NewZapLogger(debug),
	}, nil
}
