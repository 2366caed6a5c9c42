package index

import (
	"sort"

	"github.com/grafeo-db/grafeo/src/common"
)

// TrieIndex provides sorted iteration over a set of NodeIds keyed by a
// single join attribute, the building block for leapfrog triejoin
// (spec.md §4.5: "LeapfrogJoin ... intersects sorted iterators, seeking
// each forward to the current maximum rather than materializing either
// side"). It is a flat sorted slice rather than a literal trie because
// the join key space here is always a single dense integer id; a real
// multi-level trie earns its complexity once keys are composite, which
// this engine's join variables are not.
type TrieIndex struct {
	sorted []common.NodeID
}

// NewTrieIndex builds a deduplicated, sorted trie index over ids.
func NewTrieIndex(ids []common.NodeID) *TrieIndex {
	cp := append([]common.NodeID(nil), ids...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })

	out := cp[:0]
	for i, id := range cp {
		if i == 0 || id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return &TrieIndex{sorted: out}
}

// LeapfrogIterator walks a TrieIndex's sorted ids with the Seek/Next
// primitives leapfrog triejoin needs: Seek advances to the first id >= a
// target without rescanning from the start.
type LeapfrogIterator struct {
	t   *TrieIndex
	pos int
}

func (t *TrieIndex) Iterator() *LeapfrogIterator { return &LeapfrogIterator{t: t} }

// AtEnd reports whether the iterator has exhausted the index.
func (it *LeapfrogIterator) AtEnd() bool { return it.pos >= len(it.t.sorted) }

// Key returns the id the iterator currently points at.
func (it *LeapfrogIterator) Key() common.NodeID {
	return it.t.sorted[it.pos]
}

// Next advances to the following distinct id.
func (it *LeapfrogIterator) Next() { it.pos++ }

// Seek advances to the first id >= target, binary-searching rather than
// scanning linearly since the underlying slice is already sorted.
func (it *LeapfrogIterator) Seek(target common.NodeID) {
	lo, hi := it.pos, len(it.t.sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if it.t.sorted[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	it.pos = lo
}

// LeapfrogJoin intersects N sorted iterators: each round seeks one
// iterator, taken in round-robin order, to the largest key any iterator
// currently points at, and emits that key once every iterator agrees.
func LeapfrogJoin(iters []*LeapfrogIterator) []common.NodeID {
	if len(iters) == 0 {
		return nil
	}
	for _, it := range iters {
		if it.AtEnd() {
			return nil
		}
	}

	out := make([]common.NodeID, 0)
	idx := 0

	for {
		for _, it := range iters {
			if it.AtEnd() {
				return out
			}
		}
		maxKey := iters[0].Key()
		for _, it := range iters {
			if it.Key() > maxKey {
				maxKey = it.Key()
			}
		}

		it := iters[idx]
		it.Seek(maxKey)
		if it.AtEnd() {
			return out
		}

		if it.Key() == maxKey {
			allMatch := true
			for _, other := range iters {
				if other.AtEnd() || other.Key() != maxKey {
					allMatch = false
					break
				}
			}
			if allMatch {
				out = append(out, maxKey)
				for _, other := range iters {
					other.Next()
				}
				continue
			}
		}

		idx = (idx + 1) % len(iters)
	}
}
