package storage

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/grafeo-db/grafeo/src/common"
)

// ChunkCapacity is the fixed capacity of one adjacency chunk (spec.md §3:
// "default capacity 4").
const ChunkCapacity = 4

// DeltaCompactionRatio is the delta-buffer-to-chunked-list size ratio that
// triggers compaction (spec.md §4.3: "|delta| > 0.25*|chunked|").
const DeltaCompactionRatio = 0.25

// adjChunk is one fixed-capacity, append-ordered chunk of edge ids. Each
// chunk carries the epoch at which it was opened so an MVCC reader can
// skip chunks that postdate its snapshot (spec.md §4.3).
type adjChunk struct {
	edges    [ChunkCapacity]common.EdgeID
	n        int
	openedAt common.Epoch
}

func (c *adjChunk) full() bool { return c.n == ChunkCapacity }

// listState is the immutable, atomically-swapped view of an adjacency
// list's compacted chunks. Readers that grab a pointer to a listState are
// immune to concurrent compaction (spec.md §5): compaction builds a new
// listState and swaps the pointer, it never mutates one in place.
type listState struct {
	chunks []*adjChunk
}

// AdjacencyList is the per-(node, edge-type, direction) structure of
// spec.md §3/§4.3: an ordered sequence of chunks plus a delta buffer
// absorbing recent inserts and a tombstone set for deletes.
type AdjacencyList struct {
	state atomic.Pointer[listState]

	compactionMu sync.Mutex // per-list latch serializing compaction

	deltaMu sync.Mutex
	delta   []common.EdgeID

	tombMu sync.RWMutex
	tomb   map[common.EdgeID]struct{}

	bloom *BloomFilter
}

func NewAdjacencyList() *AdjacencyList {
	l := &AdjacencyList{tomb: make(map[common.EdgeID]struct{})}
	l.state.Store(&listState{})
	l.bloom = NewBloomFilter(64, 0.01)
	return l
}

// Insert appends edge to the delta buffer, triggering compaction once the
// buffer grows past DeltaCompactionRatio of the chunked list size.
func (l *AdjacencyList) Insert(edge common.EdgeID, openedAt common.Epoch) {
	l.deltaMu.Lock()
	l.delta = append(l.delta, edge)
	deltaLen := len(l.delta)
	l.deltaMu.Unlock()

	l.bloom.Add(edgeKey(edge))

	chunkedLen := len(l.state.Load().chunks) * ChunkCapacity
	if chunkedLen == 0 {
		chunkedLen = 1
	}
	if float64(deltaLen) > DeltaCompactionRatio*float64(chunkedLen) {
		l.Compact(openedAt)
	}
}

// Delete marks edge tombstoned; compaction later folds tombstones into
// rewritten chunks.
func (l *AdjacencyList) Delete(edge common.EdgeID) {
	l.tombMu.Lock()
	l.tomb[edge] = struct{}{}
	l.tombMu.Unlock()
}

func (l *AdjacencyList) isTombstoned(edge common.EdgeID) bool {
	l.tombMu.RLock()
	defer l.tombMu.RUnlock()

	_, ok := l.tomb[edge]
	return ok
}

// Compact merges the delta buffer into a new chunk list, folding in
// tombstones, and atomically swaps the published listState (spec.md
// §4.3: "run compaction under a per-list latch -- merge the delta into a
// new chunk list, swap atomically"). Readers holding a cursor snapshot
// from before the swap keep iterating the old listState untouched.
func (l *AdjacencyList) Compact(openedAt common.Epoch) {
	l.compactionMu.Lock()
	defer l.compactionMu.Unlock()

	old := l.state.Load()

	l.deltaMu.Lock()
	delta := l.delta
	l.delta = nil
	l.deltaMu.Unlock()

	l.tombMu.Lock()
	tomb := l.tomb
	l.tomb = make(map[common.EdgeID]struct{})
	l.tombMu.Unlock()

	live := make([]common.EdgeID, 0, len(old.chunks)*ChunkCapacity+len(delta))
	for _, c := range old.chunks {
		for i := 0; i < c.n; i++ {
			if _, dead := tomb[c.edges[i]]; !dead {
				live = append(live, c.edges[i])
			}
		}
	}
	for _, e := range delta {
		if _, dead := tomb[e]; !dead {
			live = append(live, e)
		}
	}

	newChunks := make([]*adjChunk, 0, len(live)/ChunkCapacity+1)
	for i := 0; i < len(live); i += ChunkCapacity {
		c := &adjChunk{openedAt: openedAt}
		end := min(i+ChunkCapacity, len(live))
		for _, e := range live[i:end] {
			c.edges[c.n] = e
			c.n++
		}
		newChunks = append(newChunks, c)
	}

	l.state.Store(&listState{chunks: newChunks})

	bloom := NewBloomFilter(len(live)+1, 0.01)
	for _, e := range live {
		bloom.Add(edgeKey(e))
	}
	l.bloom = bloom
}

// MayContain is a fast pre-check before walking the list (spec.md §4.5:
// "Expand ... consults zone maps and bloom filters before touching chunk
// bodies" applies equally to adjacency probes).
func (l *AdjacencyList) MayContain(edge common.EdgeID) bool {
	return l.bloom.MayContain(edgeKey(edge))
}

// Cursor is a restartable iterator over an adjacency list as of a fixed
// MVCC snapshot epoch. It snapshots the chunk-list pointer, delta buffer,
// and tombstone set at construction, so a concurrent Compact cannot
// invalidate an in-progress scan (spec.md §4.3, boundary behavior in
// spec.md §8: "A transaction holding a cursor through a concurrent
// adjacency compaction continues to observe its original snapshot").
type Cursor struct {
	snapshotEpoch common.Epoch
	chunks        []*adjChunk
	delta         []common.EdgeID
	tomb          map[common.EdgeID]struct{}
	chunkIdx      int
	pos           int
	inDelta       bool
}

// NewCursor opens a cursor pinned at snapshotEpoch.
func (l *AdjacencyList) NewCursor(snapshotEpoch common.Epoch) *Cursor {
	state := l.state.Load()

	l.deltaMu.Lock()
	delta := make([]common.EdgeID, len(l.delta))
	copy(delta, l.delta)
	l.deltaMu.Unlock()

	l.tombMu.RLock()
	tomb := make(map[common.EdgeID]struct{}, len(l.tomb))
	for k := range l.tomb {
		tomb[k] = struct{}{}
	}
	l.tombMu.RUnlock()

	return &Cursor{
		snapshotEpoch: snapshotEpoch,
		chunks:        state.chunks,
		delta:         delta,
		tomb:          tomb,
	}
}

// Next advances the cursor and returns the next live, visible edge id.
func (c *Cursor) Next() (common.EdgeID, bool) {
	for !c.inDelta {
		if c.chunkIdx >= len(c.chunks) {
			c.inDelta = true
			c.pos = 0
			break
		}

		chunk := c.chunks[c.chunkIdx]
		if chunk.openedAt > c.snapshotEpoch {
			// chunk postdates this reader's snapshot: its contents are
			// not yet visible, skip wholesale.
			c.chunkIdx++
			c.pos = 0
			continue
		}

		if c.pos >= chunk.n {
			c.chunkIdx++
			c.pos = 0
			continue
		}

		edge := chunk.edges[c.pos]
		c.pos++

		if _, dead := c.tomb[edge]; dead {
			continue
		}

		return edge, true
	}

	for c.pos < len(c.delta) {
		edge := c.delta[c.pos]
		c.pos++

		if _, dead := c.tomb[edge]; dead {
			continue
		}

		return edge, true
	}

	return common.NilEdgeID, false
}

// Position returns a (chunk-index, position) cursor handle so iteration
// can be restarted later (spec.md §4.3: "Iteration is restartable from
// any (chunk-index, position) cursor").
func (c *Cursor) Position() (int, int, bool) { return c.chunkIdx, c.pos, c.inDelta }

func edgeKey(e common.EdgeID) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(e))
	return b[:]
}
