package index

import (
	"sort"
	"sync"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
)

// BTreeIndex answers ordered range predicates (<, <=, >, >=, BETWEEN) on
// one PropertyKey (spec.md §4.4). It is modeled as a sorted slice rather
// than a real B-tree node structure: the write path is append + re-sort
// under a full write lock, which is acceptable for the batch-style index
// builds this engine targets and keeps the implementation legible; the
// ordered range-scan contract callers see is identical to a disk B-tree's.
type BTreeIndex struct {
	mu      sync.RWMutex
	key     common.PropertyKey
	entries []btreeEntry
	dirty   bool
}

type btreeEntry struct {
	value storage.Value
	node  common.NodeID
}

func NewBTreeIndex(key common.PropertyKey) *BTreeIndex {
	return &BTreeIndex{key: key}
}

func (b *BTreeIndex) Insert(node common.NodeID, v storage.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, btreeEntry{value: v, node: node})
	b.dirty = true
}

func (b *BTreeIndex) Remove(node common.NodeID, v storage.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.entries {
		if e.node == node && e.value.Equal(v) {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

func (b *BTreeIndex) ensureSorted() {
	if !b.dirty {
		return
	}
	sort.SliceStable(b.entries, func(i, j int) bool {
		c, ok := b.entries[i].value.Compare(b.entries[j].value)
		if !ok {
			return false
		}
		return c < 0
	})
	b.dirty = false
}

// Range returns every node whose value falls within [lo, hi]. A nil lo or
// hi means unbounded on that side.
func (b *BTreeIndex) Range(lo, hi *storage.Value) []common.NodeID {
	b.mu.Lock()
	b.ensureSorted()
	entries := b.entries
	b.mu.Unlock()

	out := make([]common.NodeID, 0)
	for _, e := range entries {
		if lo != nil {
			if c, ok := e.value.Compare(*lo); !ok || c < 0 {
				continue
			}
		}
		if hi != nil {
			if c, ok := e.value.Compare(*hi); !ok || c > 0 {
				continue
			}
		}
		out = append(out, e.node)
	}
	return out
}

// EstimateSelectivity gives the optimizer a cheap selectivity estimate
// for a range predicate, used as a fallback when no per-property
// histogram has been built yet (spec.md §4.6).
func (b *BTreeIndex) EstimateSelectivity(lo, hi *storage.Value) float64 {
	b.mu.RLock()
	total := len(b.entries)
	b.mu.RUnlock()

	if total == 0 {
		return 0
	}
	matched := len(b.Range(lo, hi))
	return float64(matched) / float64(total)
}
