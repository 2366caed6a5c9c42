// Package txn implements the MVCC transaction manager of spec.md §3/§4.1:
// monotonic epoch allocation, snapshot-isolated Begin/Commit/Abort, and
// the background GC pass that keeps version chains and the oldest-reader
// watermark in sync.
package txn

import (
	"sync"
	"sync/atomic"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
	"github.com/grafeo-db/grafeo/src/wal"
)

// Logger appends committed/aborted transactions to the write-ahead log.
// txn depends on this narrow interface rather than *wal.Writer directly
// so tests can swap in a no-op logger without standing up a filesystem.
type Logger interface {
	Append(f wal.Frame) (common.LSN, error)
	SyncCommit() error
}

// Manager owns the monotonic epoch counter, the set of active readers
// (for GC watermark computation), and the single commit latch that
// serializes the validate-then-publish step of every transaction
// (spec.md §4.1: "commit acquires a short global latch: validate the
// write set, allocate the next epoch, publish, append one Commit record,
// release").
type Manager struct {
	store *storage.Store
	log   Logger

	epoch      atomic.Uint64
	nextTxnID  atomic.Uint64
	commitMu   sync.Mutex

	activeMu sync.Mutex
	active   map[common.TxnID]common.Epoch
}

func NewManager(store *storage.Store, log Logger) *Manager {
	return &Manager{store: store, log: log, active: make(map[common.TxnID]common.Epoch)}
}

// Begin opens a new transaction pinned at the current commit epoch: it
// will see every version committed at or before this epoch and nothing
// committed after (spec.md §4.1's snapshot isolation contract).
func (m *Manager) Begin() *Txn {
	id := common.TxnID(m.nextTxnID.Add(1))
	startEpoch := common.Epoch(m.epoch.Load())

	m.activeMu.Lock()
	m.active[id] = startEpoch
	m.activeMu.Unlock()

	return &Txn{
		mgr:        m,
		id:         id,
		startEpoch: startEpoch,
	}
}

// release removes id from the active set, called on both commit and
// abort so the GC watermark advances past transactions that never wrote
// anything durable.
func (m *Manager) release(id common.TxnID) {
	m.activeMu.Lock()
	delete(m.active, id)
	m.activeMu.Unlock()
}

// OldestActiveEpoch returns the smallest start epoch among currently
// active transactions, or the current commit epoch if none are active --
// the watermark below which GC may safely prune version chains (spec.md
// §3's GC pass).
func (m *Manager) OldestActiveEpoch() common.Epoch {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()

	if len(m.active) == 0 {
		return common.Epoch(m.epoch.Load())
	}

	oldest := common.Epoch(^uint64(0))
	for _, e := range m.active {
		if e < oldest {
			oldest = e
		}
	}
	return oldest
}

// GC runs one background reclamation pass against the current watermark.
func (m *Manager) GC() {
	m.store.GCPass(m.OldestActiveEpoch())
}

// commit validates txn's write set under the commit latch, allocates the
// next epoch, applies every op, and appends a single Commit record
// (spec.md §4.1 steps 1-5). It returns ErrWriteConflict if any written
// entity's current head no longer matches the version txn observed when
// it staged the write.
func (m *Manager) commit(txn *Txn) (common.Epoch, error) {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	for _, w := range txn.writes {
		if !m.validate(w) {
			return common.NilEpoch, common.Wrap(common.KindWriteConflict, common.ErrWriteConflict,
				"concurrent commit modified an entity this transaction wrote")
		}
	}

	commitEpoch := common.Epoch(m.epoch.Add(1))

	for _, w := range txn.writes {
		if err := w.op.Apply(m.store, commitEpoch); err != nil {
			return common.NilEpoch, err
		}
		if m.log != nil {
			if _, err := m.log.Append(wal.FrameForOp(txn.id, 0, w.op)); err != nil {
				return common.NilEpoch, err
			}
		}
	}

	if m.log != nil {
		if _, err := m.log.Append(wal.FrameCommit(txn.id, 0, commitEpoch)); err != nil {
			return common.NilEpoch, err
		}
		if err := m.log.SyncCommit(); err != nil {
			return common.NilEpoch, err
		}
	}

	return commitEpoch, nil
}

// validate checks that the entity w touches has not been concurrently
// modified since w was staged: the snapshot txn read from must still be
// the current version (spec.md §4.1 step 2, first-committer-wins).
func (m *Manager) validate(w stagedWrite) bool {
	kind, id := w.op.ConflictKey()

	switch kind {
	case "node":
		written, ok := m.store.NodeWriteEpoch(common.NodeID(id))
		if !ok {
			return !w.requiresExisting
		}
		return written <= w.observedAtEpoch
	case "edge":
		written, ok := m.store.EdgeWriteEpoch(common.EdgeID(id))
		if !ok {
			return !w.requiresExisting
		}
		return written <= w.observedAtEpoch
	default:
		return true
	}
}

func (m *Manager) abort(txn *Txn) error {
	if m.log != nil && len(txn.writes) > 0 {
		if _, err := m.log.Append(wal.FrameAbort(txn.id, 0)); err != nil {
			return err
		}
	}
	return nil
}
