package storage

import (
	"sync"
	"sync/atomic"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/pkg/assert"
)

type nodeLoc struct {
	arena  *Arena[NodeRecord]
	offset uint64
}

type edgeLoc struct {
	arena  *Arena[EdgeRecord]
	offset uint64
}

// Store is the storage substrate of spec.md §4.3/§3: epoch-tagged arenas
// for node and edge records, a PropertyStore per record class, adjacency
// lists keyed by (node, edge-type, direction), version chains for
// mutated entities, and the catalog/dictionary every layer above shares.
type Store struct {
	Catalog       *Catalog
	Dict          *StringDict
	LabelOverflow *LabelOverflowTable

	nodeArenas *ArenaSet[NodeRecord]
	edgeArenas *ArenaSet[EdgeRecord]

	NodeProps *PropertyStore
	EdgeProps *PropertyStore

	dirMu   sync.RWMutex
	nodeDir map[common.NodeID]nodeLoc
	edgeDir map[common.EdgeID]edgeLoc

	chainMu        sync.Mutex
	nodeChains     map[common.NodeID]*VersionChain[NodeRecord]
	edgeChains     map[common.EdgeID]*VersionChain[EdgeRecord]
	nodePropChains map[common.NodeID]*VersionChain[map[common.PropertyKey]Value]
	edgePropChains map[common.EdgeID]*VersionChain[map[common.PropertyKey]Value]

	adjMu sync.RWMutex
	// adjacency keyed by (node, edge-type, direction); direction is
	// always DirOut or DirIn here -- DirBoth is resolved by the caller
	// consulting both.
	adjacency map[adjKey]*AdjacencyList

	nextNodeID atomic.Uint64
	nextEdgeID atomic.Uint64

	backwardEdges bool

	writeEpochMu   sync.Mutex
	nodeWriteEpoch map[common.NodeID]common.Epoch
	edgeWriteEpoch map[common.EdgeID]common.Epoch
}

type adjKey struct {
	node common.NodeID
	typ  common.EdgeTypeID
	dir  common.Direction
}

// NewStore opens an empty storage substrate. backwardEdges mirrors the
// `backward_edges` configuration key of spec.md §6.
func NewStore(backwardEdges bool) *Store {
	return &Store{
		Catalog:        NewCatalog(),
		Dict:           NewStringDict(),
		LabelOverflow:  NewLabelOverflowTable(),
		nodeArenas:     NewArenaSet[NodeRecord](4096),
		edgeArenas:     NewArenaSet[EdgeRecord](4096),
		NodeProps:      NewPropertyStore(),
		EdgeProps:      NewPropertyStore(),
		nodeDir:        make(map[common.NodeID]nodeLoc),
		edgeDir:        make(map[common.EdgeID]edgeLoc),
		nodeChains:     make(map[common.NodeID]*VersionChain[NodeRecord]),
		edgeChains:     make(map[common.EdgeID]*VersionChain[EdgeRecord]),
		nodePropChains: make(map[common.NodeID]*VersionChain[map[common.PropertyKey]Value]),
		edgePropChains: make(map[common.EdgeID]*VersionChain[map[common.PropertyKey]Value]),
		adjacency:      make(map[adjKey]*AdjacencyList),
		backwardEdges:  backwardEdges,
		nodeWriteEpoch: make(map[common.NodeID]common.Epoch),
		edgeWriteEpoch: make(map[common.EdgeID]common.Epoch),
	}
}

// MarkNodeWritten and MarkEdgeWritten record the epoch at which id was
// last touched by any op, including property/label mutations that don't
// replace the record itself. The transaction manager's commit-time
// conflict check (spec.md §4.1 step 2) compares against this rather than
// against the record's CreatedEpoch, since property columns are
// addressed by stable entity id rather than by arena offset. It also
// anchors property MVCC (versionNodeProperties/versionEdgeProperties
// below): the write epoch is the commit epoch under which the property
// map now being superseded became current.
func (s *Store) MarkNodeWritten(id common.NodeID, epoch common.Epoch) {
	s.writeEpochMu.Lock()
	s.nodeWriteEpoch[id] = epoch
	s.writeEpochMu.Unlock()
}

func (s *Store) MarkEdgeWritten(id common.EdgeID, epoch common.Epoch) {
	s.writeEpochMu.Lock()
	s.edgeWriteEpoch[id] = epoch
	s.writeEpochMu.Unlock()
}

func (s *Store) NodeWriteEpoch(id common.NodeID) (common.Epoch, bool) {
	s.writeEpochMu.Lock()
	defer s.writeEpochMu.Unlock()
	e, ok := s.nodeWriteEpoch[id]
	return e, ok
}

func (s *Store) EdgeWriteEpoch(id common.EdgeID) (common.Epoch, bool) {
	s.writeEpochMu.Lock()
	defer s.writeEpochMu.Unlock()
	e, ok := s.edgeWriteEpoch[id]
	return e, ok
}

// ReserveNodeID and ReserveEdgeID assign dense, monotonic ids at create
// time (spec.md §3: "Ids are reserved at creation, published at commit").
func (s *Store) ReserveNodeID() common.NodeID {
	return common.NodeID(s.nextNodeID.Add(1))
}

func (s *Store) ReserveEdgeID() common.EdgeID {
	return common.EdgeID(s.nextEdgeID.Add(1))
}

func (s *Store) adjacencyList(node common.NodeID, typ common.EdgeTypeID, dir common.Direction) *AdjacencyList {
	key := adjKey{node, typ, dir}

	s.adjMu.RLock()
	l, ok := s.adjacency[key]
	s.adjMu.RUnlock()
	if ok {
		return l
	}

	s.adjMu.Lock()
	defer s.adjMu.Unlock()

	if l, ok = s.adjacency[key]; ok {
		return l
	}

	l = NewAdjacencyList()
	s.adjacency[key] = l

	return l
}

// AdjacencyCursor opens a restartable cursor over node's adjacency in the
// given direction and (optional) type filter, pinned at snapshotEpoch.
// direction == DirBoth fans out to both DirOut and DirIn lists.
func (s *Store) AdjacencyCursors(node common.NodeID, typ common.EdgeTypeID, dir common.Direction, snapshotEpoch common.Epoch) []*Cursor {
	if dir == common.DirBoth {
		out := s.adjacencyList(node, typ, common.DirOut).NewCursor(snapshotEpoch)
		if !s.backwardEdges {
			return []*Cursor{out}
		}
		in := s.adjacencyList(node, typ, common.DirIn).NewCursor(snapshotEpoch)
		return []*Cursor{out, in}
	}

	if dir == common.DirIn && !s.backwardEdges {
		return nil
	}

	return []*Cursor{s.adjacencyList(node, typ, dir).NewCursor(snapshotEpoch)}
}

func (s *Store) nodeChain(id common.NodeID) *VersionChain[NodeRecord] {
	s.chainMu.Lock()
	defer s.chainMu.Unlock()

	c, ok := s.nodeChains[id]
	if !ok {
		c = NewVersionChain[NodeRecord]()
		s.nodeChains[id] = c
	}
	return c
}

func (s *Store) edgeChain(id common.EdgeID) *VersionChain[EdgeRecord] {
	s.chainMu.Lock()
	defer s.chainMu.Unlock()

	c, ok := s.edgeChains[id]
	if !ok {
		c = NewVersionChain[EdgeRecord]()
		s.edgeChains[id] = c
	}
	return c
}

func (s *Store) nodePropChain(id common.NodeID) *VersionChain[map[common.PropertyKey]Value] {
	s.chainMu.Lock()
	defer s.chainMu.Unlock()

	c, ok := s.nodePropChains[id]
	if !ok {
		c = NewVersionChain[map[common.PropertyKey]Value]()
		s.nodePropChains[id] = c
	}
	return c
}

func (s *Store) edgePropChain(id common.EdgeID) *VersionChain[map[common.PropertyKey]Value] {
	s.chainMu.Lock()
	defer s.chainMu.Unlock()

	c, ok := s.edgePropChains[id]
	if !ok {
		c = NewVersionChain[map[common.PropertyKey]Value]()
		s.edgePropChains[id] = c
	}
	return c
}

// versionNodeProperties and versionEdgeProperties snapshot id's current
// property map onto its property version chain before a property op
// mutates it, keyed by the epoch at which that map became current (its
// last write epoch). Called once per (entity, commit epoch): once
// MarkNodeWritten/MarkEdgeWritten has stamped the new commit epoch, the
// prevEpoch >= commitEpoch guard stops a second property op in the same
// transaction from re-snapshotting an already-superseded map.
func (s *Store) versionNodeProperties(id common.NodeID, commitEpoch common.Epoch) {
	prevEpoch, ok := s.NodeWriteEpoch(id)
	if !ok || prevEpoch >= commitEpoch {
		return
	}
	entry := &VersionEntry[map[common.PropertyKey]Value]{
		Value:       s.NodeProperties(id),
		CommitEpoch: prevEpoch,
	}
	chain := s.nodePropChain(id)
	_ = chain.Publish(chain.Head(), entry)
}

func (s *Store) versionEdgeProperties(id common.EdgeID, commitEpoch common.Epoch) {
	prevEpoch, ok := s.EdgeWriteEpoch(id)
	if !ok || prevEpoch >= commitEpoch {
		return
	}
	entry := &VersionEntry[map[common.PropertyKey]Value]{
		Value:       s.EdgeProperties(id),
		CommitEpoch: prevEpoch,
	}
	chain := s.edgePropChain(id)
	_ = chain.Publish(chain.Head(), entry)
}

// CurrentNodeRecord returns the directory's current (unversioned) record
// for id, ignoring MVCC visibility -- used internally right after writing
// a fresh version, and by the integrity sweep in validate().
func (s *Store) CurrentNodeRecord(id common.NodeID) (NodeRecord, bool) {
	s.dirMu.RLock()
	loc, ok := s.nodeDir[id]
	s.dirMu.RUnlock()
	if !ok {
		return NodeRecord{}, false
	}
	return loc.arena.At(loc.offset)
}

func (s *Store) CurrentEdgeRecord(id common.EdgeID) (EdgeRecord, bool) {
	s.dirMu.RLock()
	loc, ok := s.edgeDir[id]
	s.dirMu.RUnlock()
	if !ok {
		return EdgeRecord{}, false
	}
	return loc.arena.At(loc.offset)
}

// VisibleNode resolves id as of startEpoch (spec.md §4.1). The directory
// always holds the latest committed version; if it already predates or
// matches startEpoch it is the answer. Otherwise the latest version is
// too new for this reader and the node's version chain -- which holds
// exactly the versions the directory has since superseded -- is walked
// for the youngest one still visible at startEpoch.
func (s *Store) VisibleNode(id common.NodeID, startEpoch common.Epoch) (NodeRecord, bool) {
	cur, ok := s.CurrentNodeRecord(id)
	if !ok {
		return NodeRecord{}, false
	}

	if cur.CreatedEpoch <= startEpoch {
		if cur.Flags.Has(FlagDeleted) {
			return NodeRecord{}, false
		}
		return cur, true
	}

	s.chainMu.Lock()
	chain, hasChain := s.nodeChains[id]
	s.chainMu.Unlock()

	if !hasChain {
		return NodeRecord{}, false
	}
	return chain.VisibleAt(startEpoch)
}

func (s *Store) VisibleEdge(id common.EdgeID, startEpoch common.Epoch) (EdgeRecord, bool) {
	cur, ok := s.CurrentEdgeRecord(id)
	if !ok {
		return EdgeRecord{}, false
	}

	if cur.CreatedEpoch <= startEpoch {
		if cur.Flags.Has(FlagDeleted) {
			return EdgeRecord{}, false
		}
		return cur, true
	}

	s.chainMu.Lock()
	chain, hasChain := s.edgeChains[id]
	s.chainMu.Unlock()

	if !hasChain {
		return EdgeRecord{}, false
	}
	return chain.VisibleAt(startEpoch)
}

// putNode writes rec as the new current version in the directory,
// pushing the prior current value onto the node's version chain when one
// already exists in the directory. Called only from Op.Apply under the
// commit latch.
func (s *Store) putNode(id common.NodeID, rec NodeRecord) {
	s.dirMu.Lock()
	prevLoc, hadPrev := s.nodeDir[id]
	arena := s.nodeArenas.Current(rec.CreatedEpoch)
	offset := arena.Bump(rec)
	s.nodeDir[id] = nodeLoc{arena: arena, offset: offset}
	s.dirMu.Unlock()

	s.MarkNodeWritten(id, rec.CreatedEpoch)

	if !hadPrev {
		return
	}

	prevRec, ok := prevLoc.arena.At(prevLoc.offset)
	assert.Assert(ok, "dangling directory entry for node %d", id)

	chain := s.nodeChain(id)
	entry := &VersionEntry[NodeRecord]{Value: prevRec, CommitEpoch: prevRec.CreatedEpoch}
	_ = chain.Publish(chain.Head(), entry)
}

func (s *Store) putEdge(id common.EdgeID, rec EdgeRecord) {
	s.dirMu.Lock()
	prevLoc, hadPrev := s.edgeDir[id]
	arena := s.edgeArenas.Current(rec.CreatedEpoch)
	offset := arena.Bump(rec)
	s.edgeDir[id] = edgeLoc{arena: arena, offset: offset}
	s.dirMu.Unlock()

	s.MarkEdgeWritten(id, rec.CreatedEpoch)

	if !hadPrev {
		return
	}

	prevRec, ok := prevLoc.arena.At(prevLoc.offset)
	assert.Assert(ok, "dangling directory entry for edge %d", id)

	chain := s.edgeChain(id)
	entry := &VersionEntry[EdgeRecord]{Value: prevRec, CommitEpoch: prevRec.CreatedEpoch}
	_ = chain.Publish(chain.Head(), entry)
}

// GCPass prunes version chains whose next version committed at or before
// watermark (spec.md §3 GC, invariant-preserving reclamation driven by
// the oldest active reader's start epoch).
func (s *Store) GCPass(watermark common.Epoch) {
	s.chainMu.Lock()
	chains := make([]*VersionChain[NodeRecord], 0, len(s.nodeChains))
	for _, c := range s.nodeChains {
		chains = append(chains, c)
	}
	edgeChains := make([]*VersionChain[EdgeRecord], 0, len(s.edgeChains))
	for _, c := range s.edgeChains {
		edgeChains = append(edgeChains, c)
	}
	nodePropChains := make([]*VersionChain[map[common.PropertyKey]Value], 0, len(s.nodePropChains))
	for _, c := range s.nodePropChains {
		nodePropChains = append(nodePropChains, c)
	}
	edgePropChains := make([]*VersionChain[map[common.PropertyKey]Value], 0, len(s.edgePropChains))
	for _, c := range s.edgePropChains {
		edgePropChains = append(edgePropChains, c)
	}
	s.chainMu.Unlock()

	for _, c := range chains {
		c.PruneOlderThan(watermark)
	}
	for _, c := range edgeChains {
		c.PruneOlderThan(watermark)
	}
	for _, c := range nodePropChains {
		c.PruneOlderThan(watermark)
	}
	for _, c := range edgePropChains {
		c.PruneOlderThan(watermark)
	}
}

// CompactAdjacency rewrites every adjacency list to drop tombstoned
// entries no reader opened before openedAt can still observe, shrinking
// the backing slices in place (spec.md §4.7 compact()).
func (s *Store) CompactAdjacency(openedAt common.Epoch) {
	s.adjMu.RLock()
	lists := make([]*AdjacencyList, 0, len(s.adjacency))
	for _, l := range s.adjacency {
		lists = append(lists, l)
	}
	s.adjMu.RUnlock()

	for _, l := range lists {
		l.Compact(openedAt)
	}
}

// NodeCount and EdgeCount back detailed_stats()/info().
func (s *Store) NodeCount() int {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	return len(s.nodeDir)
}

func (s *Store) EdgeCount() int {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	return len(s.edgeDir)
}

// NodeLabels returns every label id a node currently carries, combining
// the inline bitmap with the overflow table.
func (s *Store) NodeLabels(rec NodeRecord) []common.LabelID {
	out := make([]common.LabelID, 0, 8)
	for l := common.LabelID(0); l < MaxInlineLabels; l++ {
		if rec.HasLabel(l) {
			out = append(out, l)
		}
	}
	if rec.Flags.Has(FlagHasLabelOverflow) {
		out = append(out, s.LabelOverflow.Labels(rec.ID)...)
	}
	return out
}

// NodeProperties and EdgeProperties materialize every property currently
// set on id, addressed by the entity's own dense id (see ops.go). This is
// the latest committed state, not a snapshot read -- callers that need
// spec.md §4.1 visibility at a given reader's start epoch must use
// VisibleNodeProperties/VisibleEdgeProperties instead.
func (s *Store) NodeProperties(id common.NodeID) map[common.PropertyKey]Value {
	return s.NodeProps.AllProperties(nodePropKey(id))
}

func (s *Store) EdgeProperties(id common.EdgeID) map[common.PropertyKey]Value {
	return s.EdgeProps.AllProperties(edgePropKey(id))
}

// VisibleNodeProperties and VisibleEdgeProperties resolve id's property
// map as of startEpoch, the same snapshot contract VisibleNode/VisibleEdge
// give record existence and labels (spec.md §4.1). If id has not been
// written since startEpoch the current map is already the answer;
// otherwise the property version chain -- populated by
// versionNodeProperties/versionEdgeProperties on every property op -- is
// walked for the youngest map still visible at startEpoch. Callers must
// first confirm the entity itself is visible at startEpoch via
// VisibleNode/VisibleEdge; this call does not repeat that check.
func (s *Store) VisibleNodeProperties(id common.NodeID, startEpoch common.Epoch) map[common.PropertyKey]Value {
	writeEpoch, ok := s.NodeWriteEpoch(id)
	if !ok || writeEpoch <= startEpoch {
		return s.NodeProperties(id)
	}

	s.chainMu.Lock()
	chain, hasChain := s.nodePropChains[id]
	s.chainMu.Unlock()
	if !hasChain {
		return map[common.PropertyKey]Value{}
	}
	if snap, ok := chain.VisibleAt(startEpoch); ok {
		return snap
	}
	return map[common.PropertyKey]Value{}
}

func (s *Store) VisibleEdgeProperties(id common.EdgeID, startEpoch common.Epoch) map[common.PropertyKey]Value {
	writeEpoch, ok := s.EdgeWriteEpoch(id)
	if !ok || writeEpoch <= startEpoch {
		return s.EdgeProperties(id)
	}

	s.chainMu.Lock()
	chain, hasChain := s.edgePropChains[id]
	s.chainMu.Unlock()
	if !hasChain {
		return map[common.PropertyKey]Value{}
	}
	if snap, ok := chain.VisibleAt(startEpoch); ok {
		return snap
	}
	return map[common.PropertyKey]Value{}
}

// AllNodeIDs and AllEdgeIDs back validate()'s integrity sweep and Scan's
// full-table fallback.
func (s *Store) AllNodeIDs() []common.NodeID {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()

	out := make([]common.NodeID, 0, len(s.nodeDir))
	for id := range s.nodeDir {
		out = append(out, id)
	}
	return out
}

func (s *Store) AllEdgeIDs() []common.EdgeID {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()

	out := make([]common.EdgeID, 0, len(s.edgeDir))
	for id := range s.edgeDir {
		out = append(out, id)
	}
	return out
}
