package txn

import (
	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
)

// stagedWrite pairs an Op with the epoch txn observed when it staged the
// write, letting commit-time validation detect whether some other
// transaction committed a newer version of the same entity in between
// (spec.md §4.1 step 2).
type stagedWrite struct {
	op               storage.Op
	observedAtEpoch  common.Epoch
	requiresExisting bool
}

// Txn is a single-writer, snapshot-isolated transaction handle. It is
// not safe for concurrent use by multiple goroutines -- spec.md §5
// scopes one Txn to the session that opened it.
type Txn struct {
	mgr        *Manager
	id         common.TxnID
	startEpoch common.Epoch
	writes     []stagedWrite
	done       bool
}

func (t *Txn) ID() common.TxnID          { return t.id }
func (t *Txn) StartEpoch() common.Epoch { return t.startEpoch }

// Store exposes the read path for query execution: Scan/Expand read
// through VisibleNode/VisibleEdge pinned at t.startEpoch, never touching
// the write set directly until commit.
func (t *Txn) Store() *storage.Store { return t.mgr.store }

func (t *Txn) stage(op storage.Op, requiresExisting bool) {
	t.writes = append(t.writes, stagedWrite{op: op, observedAtEpoch: t.startEpoch, requiresExisting: requiresExisting})
}

func (t *Txn) CreateNode(id common.NodeID, labels []common.LabelID, props map[common.PropertyKey]storage.Value) {
	t.stage(&storage.CreateNodeOp{ID: id, Labels: labels, Props: props}, false)
}

func (t *Txn) DeleteNode(id common.NodeID) {
	t.stage(&storage.DeleteNodeOp{ID: id}, true)
}

func (t *Txn) CreateEdge(id common.EdgeID, typ common.EdgeTypeID, src, dst common.NodeID, props map[common.PropertyKey]storage.Value) {
	t.stage(&storage.CreateEdgeOp{ID: id, Type: typ, Src: src, Dst: dst, Props: props}, false)
}

func (t *Txn) DeleteEdge(id common.EdgeID) {
	t.stage(&storage.DeleteEdgeOp{ID: id}, true)
}

func (t *Txn) SetNodeProperty(id common.NodeID, key common.PropertyKey, v storage.Value) {
	t.stage(&storage.SetNodePropertyOp{Node: id, Key: key, Value: v}, true)
}

func (t *Txn) RemoveNodeProperty(id common.NodeID, key common.PropertyKey) {
	t.stage(&storage.RemoveNodePropertyOp{Node: id, Key: key}, true)
}

func (t *Txn) SetEdgeProperty(id common.EdgeID, key common.PropertyKey, v storage.Value) {
	t.stage(&storage.SetEdgePropertyOp{Edge: id, Key: key, Value: v}, true)
}

func (t *Txn) RemoveEdgeProperty(id common.EdgeID, key common.PropertyKey) {
	t.stage(&storage.RemoveEdgePropertyOp{Edge: id, Key: key}, true)
}

func (t *Txn) AddNodeLabel(id common.NodeID, label common.LabelID) {
	t.stage(&storage.AddNodeLabelOp{Node: id, Label: label}, true)
}

func (t *Txn) RemoveNodeLabel(id common.NodeID, label common.LabelID) {
	t.stage(&storage.RemoveNodeLabelOp{Node: id, Label: label}, true)
}

// Commit validates and publishes every staged write, returning the
// commit epoch on success. A write-conflict or apply error leaves the
// store untouched -- validation runs before any op is applied.
func (t *Txn) Commit() (common.Epoch, error) {
	if t.done {
		return common.NilEpoch, common.ErrAborted
	}
	t.done = true
	defer t.mgr.release(t.id)

	epoch, err := t.mgr.commit(t)
	if err != nil {
		return common.NilEpoch, err
	}
	return epoch, nil
}

// Rollback discards the write set without publishing anything. Elidable
// at the WAL layer when nothing was ever staged (spec.md §4.2).
func (t *Txn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.mgr.release(t.id)

	return t.mgr.abort(t)
}
