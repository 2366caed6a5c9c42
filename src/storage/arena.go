package storage

import (
	"sync"
	"sync/atomic"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/pkg/assert"
)

// Arena is an epoch-tagged, bump-pointer allocator (spec.md §4.3): node
// and edge records, and each property-column shape, live in their own
// arena so that reclamation works at arena granularity rather than
// per-object GC. An arena becomes eligible for reclamation only once no
// active transaction's start epoch predates the epoch in which it was
// opened.
type Arena[T any] struct {
	openedAt common.Epoch
	mu       sync.RWMutex
	slots    []T
	next     atomic.Uint64
}

// NewArena opens an arena tagged with the given epoch. capacityHint
// pre-sizes the backing slice to avoid repeated growth under the bump
// pointer.
func NewArena[T any](openedAt common.Epoch, capacityHint int) *Arena[T] {
	return &Arena[T]{
		openedAt: openedAt,
		slots:    make([]T, 0, capacityHint),
	}
}

func (a *Arena[T]) OpenedAt() common.Epoch { return a.openedAt }

// Bump appends v and returns its index, the arena-local offset that
// PropertyBlock and NodeRecord store as a "property block offset"
// (spec.md §3). It never blocks readers: growth happens under a
// short-lived write lock, and already-published slots never move once
// appended (Go slice growth copies into a fresh backing array, but no
// reader holds a raw pointer across a Bump — everyone indexes by offset).
func (a *Arena[T]) Bump(v T) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := uint64(len(a.slots))
	a.slots = append(a.slots, v)
	a.next.Store(idx + 1)

	return idx
}

// At returns the value at offset, or ok=false if offset was never bumped.
func (a *Arena[T]) At(offset uint64) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if offset >= uint64(len(a.slots)) {
		var zero T
		return zero, false
	}

	return a.slots[offset], true
}

// Set overwrites the value at offset in place; used when a record's
// mutable fields (flags, property offsets) change without creating a new
// version — the version itself is tracked separately via VersionChain.
func (a *Arena[T]) Set(offset uint64, v T) {
	a.mu.Lock()
	defer a.mu.Unlock()

	assert.Assert(offset < uint64(len(a.slots)), "arena offset out of range: %d", offset)
	a.slots[offset] = v
}

// Len returns the number of live slots, used by the admin surface's
// detailed_stats() to report per-arena memory use.
func (a *Arena[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.slots)
}

// Snapshot returns a shallow copy of all slots, used by the checkpoint
// writer (spec.md §4.2) to flush a consistent view of the arena.
func (a *Arena[T]) Snapshot() []T {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]T, len(a.slots))
	copy(out, a.slots)

	return out
}

// ArenaSet groups the arenas reclaimed together at a given watermark —
// one per record shape (nodes, edges, and one per property-column shape).
// Reclamation prunes whole generations: once every arena opened at or
// before a watermark epoch has no reader depending on it, the set can be
// dropped and its memory returned to the allocator.
type ArenaSet[T any] struct {
	mu       sync.Mutex
	arenas   []*Arena[T]
	capacity int
}

func NewArenaSet[T any](capacity int) *ArenaSet[T] {
	return &ArenaSet[T]{capacity: capacity}
}

// Current returns the most recently opened arena, opening a new one
// tagged with openedAt if none exists yet.
func (s *ArenaSet[T]) Current(openedAt common.Epoch) *Arena[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.arenas) == 0 {
		a := NewArena[T](openedAt, s.capacity)
		s.arenas = append(s.arenas, a)
	}

	return s.arenas[len(s.arenas)-1]
}

// Rotate closes the current arena and opens a fresh one at openedAt; used
// after a checkpoint so that post-checkpoint writes land in arenas newer
// than the watermark.
func (s *ArenaSet[T]) Rotate(openedAt common.Epoch) *Arena[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := NewArena[T](openedAt, s.capacity)
	s.arenas = append(s.arenas, a)

	return a
}

// ReclaimBelow drops every arena opened at or before watermark, returning
// how many were reclaimed. Callers must only invoke this once they have
// established that no active reader's start epoch predates watermark.
func (s *ArenaSet[T]) ReclaimBelow(watermark common.Epoch) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.arenas[:0]
	reclaimed := 0

	for _, a := range s.arenas {
		if a.openedAt <= watermark && a != s.arenas[len(s.arenas)-1] {
			reclaimed++
			continue
		}
		kept = append(kept, a)
	}

	s.arenas = kept

	return reclaimed
}

func (s *ArenaSet[T]) All() []*Arena[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Arena[T], len(s.arenas))
	copy(out, s.arenas)

	return out
}
