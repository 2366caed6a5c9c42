// Package index holds the secondary structures the optimizer and
// executor consult instead of a full scan: an equality hash index, an
// ordered B-tree for range predicates, and a trie index supporting
// leapfrog-style worst-case-optimal joins (spec.md §3, §4.4).
package index

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
)

// HashIndex answers equality predicates on one PropertyKey (it holds no
// label of its own; it covers whatever nodes are inserted into it),
// mapping a value's hash to the set of matching NodeIds (spec.md §4.4:
// "equality lookups on an indexed property resolve via a hash index
// keyed on the property's dictionary id or scalar encoding").
type HashIndex struct {
	mu      sync.RWMutex
	key     common.PropertyKey
	buckets map[uint64][]entry
}

type entry struct {
	value storage.Value
	node  common.NodeID
}

func NewHashIndex(key common.PropertyKey) *HashIndex {
	return &HashIndex{key: key, buckets: make(map[uint64][]entry)}
}

func hashValue(v storage.Value) uint64 {
	switch v.Kind() {
	case storage.KindString, storage.KindBytes:
		return xxhash.Sum64(v.AsBytes())
	case storage.KindI64:
		var b [8]byte
		u := uint64(v.AsI64())
		for i := range b {
			b[i] = byte(u >> (8 * i))
		}
		return xxhash.Sum64(b[:])
	case storage.KindBool:
		if v.AsBool() {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Insert records that node carries value under this index's property key.
func (h *HashIndex) Insert(node common.NodeID, v storage.Value) {
	h.mu.Lock()
	defer h.mu.Unlock()

	k := hashValue(v)
	h.buckets[k] = append(h.buckets[k], entry{value: v, node: node})
}

// Remove drops node's entry for value, if present.
func (h *HashIndex) Remove(node common.NodeID, v storage.Value) {
	h.mu.Lock()
	defer h.mu.Unlock()

	k := hashValue(v)
	bucket := h.buckets[k]
	for i, e := range bucket {
		if e.node == node && e.value.Equal(v) {
			h.buckets[k] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// Lookup returns every node whose value under this index's key equals v.
func (h *HashIndex) Lookup(v storage.Value) []common.NodeID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	bucket := h.buckets[hashValue(v)]
	out := make([]common.NodeID, 0, len(bucket))
	for _, e := range bucket {
		if e.value.Equal(v) {
			out = append(out, e.node)
		}
	}
	return out
}

// Cardinality estimates the selectivity of an equality predicate for the
// cost-based optimizer (spec.md §4.6).
func (h *HashIndex) Cardinality(v storage.Value) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, e := range h.buckets[hashValue(v)] {
		if e.value.Equal(v) {
			n++
		}
	}
	return n
}
