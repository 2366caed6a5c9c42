// Package session implements the embeddable database handle and
// per-caller session surface of spec.md §4.7/§6: configuration loading,
// transaction lifecycle, the admin surface, and query execution wiring
// the optimizer and executor to a live transaction.
package session

import (
	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/wal"
)

// SyncMode mirrors wal.SyncPolicy at the configuration boundary so
// callers who only import session never need to import wal directly.
type SyncMode string

const (
	SyncModeFull   SyncMode = "full"
	SyncModeNormal SyncMode = "normal"
	SyncModeOff    SyncMode = "off"
)

func (m SyncMode) toPolicy() wal.SyncPolicy {
	switch m {
	case SyncModeFull:
		return wal.SyncFull
	case SyncModeOff:
		return wal.SyncOff
	default:
		return wal.SyncNormal
	}
}

// Config is the recognized configuration surface of spec.md §6. Fields
// left zero take the documented default.
type Config struct {
	// Path, if set, makes the database persistent at P/{data,wal,metadata};
	// empty means in-memory only.
	Path string

	// MemoryLimit (bytes) triggers spill above this threshold; 0 means
	// "detected system memory" is left to the caller to set explicitly --
	// this engine does not probe host memory itself.
	MemoryLimit int64

	// Threads sizes the executor's morsel pool; 0 uses the runtime
	// default (detected cores).
	Threads int

	SyncMode SyncMode

	// ReadOnly rejects any transaction that would append to the log.
	ReadOnly bool

	// BackwardEdges maintains inbound adjacency lists; defaults to true.
	BackwardEdges *bool

	// Logger receives structured events from Database lifecycle
	// operations (open, checkpoint, compact, validate); nil gets
	// common.NoopLogger.
	Logger common.Logger
}

func (c Config) logger() common.Logger {
	if c.Logger == nil {
		return common.NoopLogger()
	}
	return c.Logger
}

func (c Config) backwardEdges() bool {
	if c.BackwardEdges == nil {
		return true
	}
	return *c.BackwardEdges
}

func (c Config) syncPolicy() wal.SyncPolicy {
	if c.SyncMode == "" {
		return wal.SyncNormal
	}
	return c.SyncMode.toPolicy()
}
