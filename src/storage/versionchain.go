package storage

import (
	"sync/atomic"

	"github.com/grafeo-db/grafeo/src/common"
)

// VersionEntry is one link of a VersionChain: a prior snapshot of a node
// or edge, stamped with the epoch at which it was committed and (if it
// was later superseded or deleted) the epoch at which it stopped being
// visible.
type VersionEntry[T any] struct {
	Value       T
	CommitEpoch common.Epoch
	DeleteEpoch common.Epoch // NilEpoch unless this version was a tombstone
	prev        *VersionEntry[T]
}

// VersionChain is a singly-linked chain of prior value snapshots, present
// only for entities touched by an in-flight or recently committed
// transaction (spec.md §3). The head is published with a compare-and-swap
// so commit can publish without a global lock (spec.md §5: "Version
// chains: protected by per-entity compare-and-swap at the chain head;
// chain body entries are immutable once published").
type VersionChain[T any] struct {
	head atomic.Pointer[VersionEntry[T]]
}

func NewVersionChain[T any]() *VersionChain[T] {
	return &VersionChain[T]{}
}

// Head returns the current chain head, or nil if the entity has never
// been versioned (i.e. it is still at its creation value).
func (c *VersionChain[T]) Head() *VersionEntry[T] {
	return c.head.Load()
}

// Publish CAS-installs a new head on top of expectedPrev. Returns false
// if the head moved concurrently, in which case the caller (commit
// validation, spec.md §4.1 step 2) must treat this as a write conflict.
func (c *VersionChain[T]) Publish(expectedPrev *VersionEntry[T], entry *VersionEntry[T]) bool {
	entry.prev = expectedPrev
	return c.head.CompareAndSwap(expectedPrev, entry)
}

// VisibleAt walks the chain backwards from the head until it finds the
// youngest version visible to a reader whose snapshot start epoch is
// startEpoch (spec.md §4.1): committed at or before startEpoch, and not
// yet deleted as of startEpoch.
func (c *VersionChain[T]) VisibleAt(startEpoch common.Epoch) (T, bool) {
	for e := c.head.Load(); e != nil; e = e.prev {
		if e.CommitEpoch > startEpoch {
			continue
		}
		if e.DeleteEpoch != common.NilEpoch && e.DeleteEpoch <= startEpoch {
			var zero T
			return zero, false
		}
		return e.Value, true
	}

	var zero T
	return zero, false
}

// PruneOlderThan discards chain entries whose *next* version committed at
// or before watermark — the GC pass of spec.md §3 ("a background pass
// prunes version chains whose next version has commit epoch <= the
// oldest active reader's start epoch"). It walks from the head, keeping
// the first entry it finds that is still the newest visible version for
// some reader at or after watermark, and severs everything below it.
func (c *VersionChain[T]) PruneOlderThan(watermark common.Epoch) {
	head := c.head.Load()
	if head == nil {
		return
	}

	cur := head
	for cur.prev != nil {
		// cur.prev is superseded once cur itself committed at or before
		// watermark: no reader with start epoch >= watermark can still
		// need to see past cur.
		if cur.CommitEpoch <= watermark {
			cur.prev = nil
			return
		}
		cur = cur.prev
	}
}
