package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
	"github.com/grafeo-db/grafeo/src/txn"
	"github.com/grafeo-db/grafeo/src/wal"
)

const (
	dataDir = "data"
	walDir  = "wal"
)

// Database is the thread-safe, process-wide handle to one graph (spec.md
// §4.7: "the database object is [thread-safe]"). It owns the storage
// substrate, the transaction manager, and -- for a persistent database --
// the write-ahead log and checkpoint coordinator. Sessions borrow it but
// never own its lifecycle.
type Database struct {
	ID uuid.UUID

	cfg   Config
	fs    afero.Fs
	store *storage.Store
	mgr   *txn.Manager

	writer       *wal.Writer
	checkpointer *wal.Checkpointer

	log      common.Logger
	gaugeReg metric.Registration
}

// Open creates or re-opens a database per cfg. An empty cfg.Path opens a
// fresh in-memory database; a non-empty path opens (creating if absent)
// the on-disk layout of spec.md §6 and replays the WAL before returning.
func Open(cfg Config) (*Database, error) {
	store := storage.NewStore(cfg.backwardEdges())

	db := &Database{ID: uuid.New(), cfg: cfg, store: store, log: cfg.logger()}
	db.gaugeReg, _ = db.registerGauges()

	if cfg.Path == "" {
		db.mgr = txn.NewManager(store, nil)
		db.log.Infow("database opened", "mode", "memory", "id", db.ID)
		return db, nil
	}

	db.fs = afero.NewOsFs()
	if err := db.fs.MkdirAll(cfg.Path+"/"+dataDir, 0o755); err != nil {
		return nil, common.Wrap(common.KindIoError, err, "session: creating data directory")
	}

	writer, err := wal.NewWriter(db.fs, cfg.Path+"/"+walDir, cfg.syncPolicy())
	if err != nil {
		return nil, err
	}
	db.writer = writer
	db.checkpointer = wal.NewCheckpointer(writer, db.fs, cfg.Path+"/"+walDir)

	if _, err := loadSnapshot(db.fs, cfg.Path, store); err != nil {
		return nil, err
	}

	if _, err := wal.Recover(db.fs, cfg.Path+"/"+walDir, store); err != nil {
		return nil, common.Wrap(common.KindCorruption, err, "session: replaying write-ahead log")
	}

	var logger txn.Logger
	if !cfg.ReadOnly {
		logger = writer
	}
	db.mgr = txn.NewManager(store, logger)

	db.log.Infow("database opened", "mode", "persistent", "id", db.ID, "path", cfg.Path)
	return db, nil
}

// OpenMemory opens a fresh in-memory database with the given backward-
// edges policy, the shorthand the CLI and tests reach for most often.
func OpenMemory(backwardEdges bool) *Database {
	db, _ := Open(Config{BackwardEdges: &backwardEdges})
	return db
}

// NewSession opens a new, single-threaded caller handle onto db.
func (db *Database) NewSession() *Session {
	return newSession(db)
}

// Store exposes the storage substrate to the optimizer/executor wiring
// inside Session; other packages should go through a Session instead.
func (db *Database) Store() *storage.Store { return db.store }

// Info backs the admin surface's info() (spec.md §4.7): mode, counts,
// persistence state.
type Info struct {
	ID            string
	Mode          string // "memory" or "persistent"
	Path          string
	NodeCount     int
	EdgeCount     int
	ReadOnly      bool
	BackwardEdges bool
}

func (db *Database) Info() Info {
	mode := "memory"
	if db.cfg.Path != "" {
		mode = "persistent"
	}
	return Info{
		ID: db.ID.String(), Mode: mode, Path: db.cfg.Path,
		NodeCount: db.store.NodeCount(), EdgeCount: db.store.EdgeCount(),
		ReadOnly: db.cfg.ReadOnly, BackwardEdges: db.cfg.backwardEdges(),
	}
}

// DetailedStats backs detailed_stats(): a coarse memory-use breakdown by
// subsystem. Per-arena byte accounting isn't tracked at that granularity
// yet, so this reports entity counts as the size proxy the admin CLI
// renders (see DESIGN.md).
type DetailedStats struct {
	NodeCount     int
	EdgeCount     int
	DictionarySize int
}

func (db *Database) DetailedStats() DetailedStats {
	return DetailedStats{
		NodeCount:      db.store.NodeCount(),
		EdgeCount:      db.store.EdgeCount(),
		DictionarySize: db.store.Dict.Len(),
	}
}

// Schema backs schema(): labels, edge-types, property keys known to the
// catalog.
func (db *Database) Schema() storage.Schema {
	return db.store.Catalog.Schema()
}

// SnapshotEpoch exposes the oldest epoch any active reader might still
// need, the snapshot the admin CLI's data-dump commands read against.
func (db *Database) SnapshotEpoch() common.Epoch {
	return db.mgr.OldestActiveEpoch()
}

// validateChunkSize bounds how much of the id list one errgroup worker
// sweeps before yielding, keeping Validate responsive on large graphs
// without spawning one goroutine per record.
const validateChunkSize = 4096

// Validate runs the integrity sweep of spec.md §4.7 over every record
// visible at the oldest active epoch. It checks that each node record's
// id matches the directory id it is stored under, and that each edge's
// source and destination are visible nodes. It does not check adjacency
// list consistency, version chains, or zone maps and bloom filters.
// Node and edge sweeps run concurrently,
// each fanned out across chunks of the id list; the first violation
// found by any worker is returned.
func (db *Database) Validate() error {
	epoch := db.mgr.OldestActiveEpoch()

	group, _ := errgroup.WithContext(context.Background())

	group.Go(func() error { return db.validateNodes(epoch) })
	group.Go(func() error { return db.validateEdges(epoch) })

	if err := group.Wait(); err != nil {
		db.log.Warnw("validate found a violation", "error", err)
		return err
	}
	return nil
}

func (db *Database) validateNodes(epoch common.Epoch) error {
	ids := db.store.AllNodeIDs()
	group, _ := errgroup.WithContext(context.Background())

	for start := 0; start < len(ids); start += validateChunkSize {
		end := min(start+validateChunkSize, len(ids))
		chunk := ids[start:end]
		group.Go(func() error {
			for _, id := range chunk {
				rec, ok := db.store.VisibleNode(id, epoch)
				if !ok {
					continue
				}
				if rec.ID != id {
					return common.NewError(common.KindCorruption, fmt.Sprintf("node %d: directory/record id mismatch", id))
				}
			}
			return nil
		})
	}
	return group.Wait()
}

func (db *Database) validateEdges(epoch common.Epoch) error {
	ids := db.store.AllEdgeIDs()
	group, _ := errgroup.WithContext(context.Background())

	for start := 0; start < len(ids); start += validateChunkSize {
		end := min(start+validateChunkSize, len(ids))
		chunk := ids[start:end]
		group.Go(func() error {
			for _, id := range chunk {
				rec, ok := db.store.VisibleEdge(id, epoch)
				if !ok {
					continue
				}
				if _, ok := db.store.VisibleNode(rec.Src, epoch); !ok {
					return common.NewError(common.KindCorruption, fmt.Sprintf("edge %d: dangling source endpoint %d", id, rec.Src))
				}
				if _, ok := db.store.VisibleNode(rec.Dst, epoch); !ok {
					return common.NewError(common.KindCorruption, fmt.Sprintf("edge %d: dangling destination endpoint %d", id, rec.Dst))
				}
			}
			return nil
		})
	}
	return group.Wait()
}

// WalStatus backs wal_status(): the current segment number and last
// checkpoint epoch, or a zero value for an in-memory database.
type WalStatus struct {
	Enabled          bool
	CurrentSegment   int
	LastCheckpointAt common.Epoch
}

func (db *Database) WalStatus() WalStatus {
	if db.writer == nil {
		return WalStatus{}
	}
	return WalStatus{
		Enabled:          true,
		CurrentSegment:   db.writer.CurrentSegment(),
		LastCheckpointAt: db.checkpointer.LastCheckpointEpoch(),
	}
}

// WalCheckpoint backs wal_checkpoint(): flushes a watermark record at the
// oldest epoch still needed by an active reader, then truncates segments
// that predate it.
func (db *Database) WalCheckpoint() (common.LSN, error) {
	if db.checkpointer == nil {
		return 0, common.NewError(common.KindUnsupported, "wal_checkpoint: database is in-memory")
	}
	watermark := db.mgr.OldestActiveEpoch()
	lsn, err := db.checkpointer.Checkpoint(watermark)
	if err != nil {
		return 0, err
	}
	if err := writeSnapshot(db, watermark); err != nil {
		return 0, err
	}
	if _, err := db.checkpointer.TruncateBefore(db.writer.CurrentSegment()); err != nil {
		return 0, err
	}
	db.log.Infow("checkpoint written", "lsn", lsn, "watermark", watermark)
	return lsn, nil
}

// Save backs save(path): for this engine a persistent database is always
// already durable on its configured path via the WAL; Save against a
// different path opens (creating if absent) a persistent database at
// path and copies the current live graph into it, matching to_memory()'s
// semantics but to a named on-disk destination rather than an anonymous
// in-memory handle.
func (db *Database) Save(path string) error {
	dst, err := Open(Config{Path: path, BackwardEdges: ptrBool(db.cfg.backwardEdges())})
	if err != nil {
		return err
	}
	defer dst.Close()
	return copyGraph(db, dst)
}

// ToMemory backs to_memory(): snapshots the live graph into a fresh
// in-memory database, useful for taking a disposable working copy of a
// persistent one.
func (db *Database) ToMemory() (*Database, error) {
	dst := OpenMemory(db.cfg.backwardEdges())
	if err := copyGraph(db, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// Backup copies the on-disk layout to dest; refuses for an in-memory
// database (exit code 1 per spec.md §6's "backup refused").
func (db *Database) Backup(dest string) error {
	if db.cfg.Path == "" {
		return common.NewError(common.KindUnsupported, "backup refused: database is in-memory")
	}
	return copyDir(db.fs, db.cfg.Path, dest)
}

// copyDir recursively copies src to dst on fs. afero has no CopyDir
// helper, so this walks the tree using afero's own primitives.
func copyDir(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, info.Mode())
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		return afero.WriteFile(fs, target, data, info.Mode())
	})
}

// Compact backs compact(): runs one version-chain reclamation pass and
// shrinks every adjacency list down to its live entries, both bounded by
// the oldest epoch any active session might still read from.
func (db *Database) Compact() {
	watermark := db.mgr.OldestActiveEpoch()
	db.mgr.GC()
	db.store.CompactAdjacency(watermark)
	db.log.Infow("compaction pass complete", "watermark", watermark)
}

func (db *Database) Close() error {
	db.log.Infow("database closed", "id", db.ID)
	_ = db.log.Sync()
	if db.gaugeReg != nil {
		_ = db.gaugeReg.Unregister()
	}
	if db.writer == nil {
		return nil
	}
	return db.writer.Close()
}

func copyGraph(src, dst *Database) error {
	epoch := src.mgr.OldestActiveEpoch()
	tx := dst.mgr.Begin()
	for _, id := range src.store.AllNodeIDs() {
		rec, ok := src.store.VisibleNode(id, epoch)
		if !ok {
			continue
		}
		tx.CreateNode(id, src.store.NodeLabels(rec), src.store.VisibleNodeProperties(id, epoch))
	}
	for _, id := range src.store.AllEdgeIDs() {
		rec, ok := src.store.VisibleEdge(id, epoch)
		if !ok {
			continue
		}
		tx.CreateEdge(id, rec.Type, rec.Src, rec.Dst, src.store.VisibleEdgeProperties(id, epoch))
	}
	_, err := tx.Commit()
	return err
}

func ptrBool(b bool) *bool { return &b }
