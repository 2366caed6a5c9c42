// Package optimizer implements the cost-based query optimizer of spec.md
// §4.6: predicate/projection pushdown, join reordering, and physical
// lowering from the logical plan algebra (package plan) down to the
// vectorized operator tree (package exec).
package optimizer

import (
	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/index"
	"github.com/grafeo-db/grafeo/src/storage"
)

// Stats is the catalog-derived cardinality model the optimizer consults
// when choosing join order and physical operators (spec.md §4.6:
// "histogram-driven cardinality estimation over per-label counts,
// per-property value distributions, and per-edge-type degree
// distributions").
type Stats struct {
	store *storage.Store

	labelCounts map[common.LabelID]int
	hashIndexes map[common.PropertyKey]*index.HashIndex
	btreeIndexes map[common.PropertyKey]*index.BTreeIndex
}

func NewStats(store *storage.Store) *Stats {
	return &Stats{
		store:        store,
		labelCounts:  make(map[common.LabelID]int),
		hashIndexes:  make(map[common.PropertyKey]*index.HashIndex),
		btreeIndexes: make(map[common.PropertyKey]*index.BTreeIndex),
	}
}

// RegisterHashIndex/RegisterBTreeIndex let a session wire a built
// secondary index into the optimizer's selectivity model; without one,
// EstimateEquality/EstimateRange fall back to a flat guess.
func (s *Stats) RegisterHashIndex(key common.PropertyKey, idx *index.HashIndex) {
	s.hashIndexes[key] = idx
}

func (s *Stats) RegisterBTreeIndex(key common.PropertyKey, idx *index.BTreeIndex) {
	s.btreeIndexes[key] = idx
}

// Refresh recomputes per-label node counts by sweeping the live directory.
// Called only through Session.RefreshStats, on demand; neither a commit
// nor a timer triggers it (spec.md §4.6 treats statistics as refreshed lazily).
func (s *Stats) Refresh(snapshotEpoch common.Epoch) {
	counts := make(map[common.LabelID]int)
	for _, id := range s.store.AllNodeIDs() {
		rec, ok := s.store.VisibleNode(id, snapshotEpoch)
		if !ok {
			continue
		}
		for _, l := range s.store.NodeLabels(rec) {
			counts[l]++
		}
	}
	s.labelCounts = counts
}

// LabelCardinality estimates |nodes with label|, falling back to 1 (never
// zero, so downstream cost formulas never divide by zero) when stats
// haven't been refreshed yet.
func (s *Stats) LabelCardinality(label common.LabelID) int {
	if n, ok := s.labelCounts[label]; ok && n > 0 {
		return n
	}
	return 1
}

// EstimateEquality estimates the selectivity of `key = value` using a
// registered hash index when available, otherwise a flat 10% guess.
func (s *Stats) EstimateEquality(key common.PropertyKey, v storage.Value, baseCardinality int) int {
	if idx, ok := s.hashIndexes[key]; ok {
		if n := idx.Cardinality(v); n > 0 {
			return n
		}
	}
	est := baseCardinality / 10
	if est < 1 {
		est = 1
	}
	return est
}

// EstimateRange estimates the selectivity of a range predicate using a
// registered B-tree index when available, otherwise a flat 33% guess
// (spec.md §4.6's fallback for unindexed range predicates).
func (s *Stats) EstimateRange(key common.PropertyKey, lo, hi *storage.Value, baseCardinality int) int {
	if idx, ok := s.btreeIndexes[key]; ok {
		return int(idx.EstimateSelectivity(lo, hi) * float64(baseCardinality))
	}
	est := baseCardinality / 3
	if est < 1 {
		est = 1
	}
	return est
}
