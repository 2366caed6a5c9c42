package storage

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/grafeo-db/grafeo/src/common"
)

// RecordFlags packs the boolean flags of spec.md §3's NodeRecord/EdgeRecord.
type RecordFlags uint8

const (
	FlagDeleted RecordFlags = 1 << iota
	FlagHasVersionChain
	FlagHasLabelOverflow
)

func (f RecordFlags) Has(flag RecordFlags) bool { return f&flag != 0 }
func (f RecordFlags) Set(flag RecordFlags) RecordFlags { return f | flag }
func (f RecordFlags) Clear(flag RecordFlags) RecordFlags { return f &^ flag }

// MaxInlineLabels is the number of labels a NodeRecord can represent
// directly in its bitmap field before the overflow table engages
// (spec.md §3: "up to 64 interned labels").
const MaxInlineLabels = 64

// NodeRecord is the fixed, cache-line-oriented record for one node
// (spec.md §3). Label membership beyond MaxInlineLabels labels is kept
// out-of-line in a *roaring.Bitmap, looked up by NodeID in
// LabelOverflowTable; this keeps the common case (<=64 labels) branch-free
// while still supporting arbitrarily many labels per node.
type NodeRecord struct {
	ID           common.NodeID
	LabelBitmap  uint64
	PropBlockOff uint64
	PropCount    uint32
	Flags        RecordFlags
	CreatedEpoch common.Epoch
}

func (n NodeRecord) HasLabel(l common.LabelID) bool {
	if l < MaxInlineLabels {
		return n.LabelBitmap&(1<<uint(l)) != 0
	}
	return false // overflow membership is checked via LabelOverflowTable
}

// EdgeRecord is the fixed record for one edge (spec.md §3). Edges are
// addressable both by id and through adjacency lists.
type EdgeRecord struct {
	ID           common.EdgeID
	Type         common.EdgeTypeID
	Src          common.NodeID
	Dst          common.NodeID
	PropBlockOff uint64
	PropCount    uint32
	Flags        RecordFlags
	CreatedEpoch common.Epoch
}

// LabelOverflowTable holds the 65th-and-beyond label memberships for
// nodes that exceed MaxInlineLabels, keyed by NodeID (spec.md §3: "Label
// membership beyond 64 labels uses an overflow table keyed by id").
// Roaring bitmaps keep the per-node overflow set compact and give O(1)
// membership tests without falling back to a generic map[LabelID]bool.
type LabelOverflowTable struct {
	byNode map[common.NodeID]*roaring.Bitmap
}

func NewLabelOverflowTable() *LabelOverflowTable {
	return &LabelOverflowTable{byNode: make(map[common.NodeID]*roaring.Bitmap)}
}

func (t *LabelOverflowTable) Add(node common.NodeID, label common.LabelID) {
	bm, ok := t.byNode[node]
	if !ok {
		bm = roaring.New()
		t.byNode[node] = bm
	}
	bm.Add(uint32(label))
}

func (t *LabelOverflowTable) Remove(node common.NodeID, label common.LabelID) {
	if bm, ok := t.byNode[node]; ok {
		bm.Remove(uint32(label))
		if bm.IsEmpty() {
			delete(t.byNode, node)
		}
	}
}

func (t *LabelOverflowTable) Has(node common.NodeID, label common.LabelID) bool {
	bm, ok := t.byNode[node]
	return ok && bm.Contains(uint32(label))
}

func (t *LabelOverflowTable) Labels(node common.NodeID) []common.LabelID {
	bm, ok := t.byNode[node]
	if !ok {
		return nil
	}
	out := make([]common.LabelID, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, common.LabelID(it.Next()))
	}
	return out
}
