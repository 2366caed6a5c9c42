package storage

import (
	"github.com/grafeo-db/grafeo/src/common"
)

// OpKind tags a logged mutation (spec.md §4.2's WAL record types double
// as the write-set entries a transaction accumulates before commit).
type OpKind uint8

const (
	OpCreateNode OpKind = iota
	OpDeleteNode
	OpCreateEdge
	OpDeleteEdge
	OpSetNodeProperty
	OpRemoveNodeProperty
	OpSetEdgeProperty
	OpRemoveEdgeProperty
	OpAddNodeLabel
	OpRemoveNodeLabel
)

// Op is one staged mutation. A transaction accumulates Ops in its write
// set; at commit, under the commit latch, the manager calls ConflictKey
// to validate against concurrent commits and then Apply to publish the
// change into the Store and stamp it with the allocated commit epoch.
type Op interface {
	Kind() OpKind
	// ConflictKey identifies the entity this op touches, for write-write
	// conflict detection against the store's directory/version chains
	// (spec.md §4.1 step 2).
	ConflictKey() (kind string, id uint64)
	Apply(s *Store, commitEpoch common.Epoch) error
}

// Property columns are addressed by the entity's own dense id rather than
// by arena offset: a record's physical slot is immutable once bumped (a
// new version gets a new slot), but property edits are far more frequent
// than label/existence changes and must not force a full property copy
// on every Set. Keying by id keeps Set/Get O(1); the snapshot-isolation
// guarantee for readers pinned at an older epoch comes instead from
// Store.versionNodeProperties/versionEdgeProperties, which snapshot the
// whole property map onto a VersionChain before every mutating property
// op -- mirroring putNode/putEdge's push-old-version-onto-the-chain
// pattern rather than keying the column itself by epoch.
func nodePropKey(id common.NodeID) uint64 { return uint64(id) }
func edgePropKey(id common.EdgeID) uint64 { return uint64(id) }

type CreateNodeOp struct {
	ID     common.NodeID
	Labels []common.LabelID
	Props  map[common.PropertyKey]Value
}

func (op *CreateNodeOp) Kind() OpKind                  { return OpCreateNode }
func (op *CreateNodeOp) ConflictKey() (string, uint64) { return "node", uint64(op.ID) }

func (op *CreateNodeOp) Apply(s *Store, commitEpoch common.Epoch) error {
	rec := NodeRecord{ID: op.ID, CreatedEpoch: commitEpoch, PropBlockOff: nodePropKey(op.ID)}

	for _, l := range op.Labels {
		if l < MaxInlineLabels {
			rec.LabelBitmap |= 1 << uint(l)
		} else {
			rec.Flags = rec.Flags.Set(FlagHasLabelOverflow)
			s.LabelOverflow.Add(op.ID, l)
		}
	}

	s.putNode(op.ID, rec)

	for k, v := range op.Props {
		s.NodeProps.SetProperty(nodePropKey(op.ID), k, v)
	}

	return nil
}

type DeleteNodeOp struct {
	ID common.NodeID
}

func (op *DeleteNodeOp) Kind() OpKind                  { return OpDeleteNode }
func (op *DeleteNodeOp) ConflictKey() (string, uint64) { return "node", uint64(op.ID) }

func (op *DeleteNodeOp) Apply(s *Store, commitEpoch common.Epoch) error {
	rec, ok := s.CurrentNodeRecord(op.ID)
	if !ok {
		return common.Wrap(common.KindNotFound, common.ErrNotFound, "delete_node: node does not exist")
	}
	rec.Flags = rec.Flags.Set(FlagDeleted)
	rec.CreatedEpoch = commitEpoch
	s.putNode(op.ID, rec)
	return nil
}

type CreateEdgeOp struct {
	ID    common.EdgeID
	Type  common.EdgeTypeID
	Src   common.NodeID
	Dst   common.NodeID
	Props map[common.PropertyKey]Value
}

func (op *CreateEdgeOp) Kind() OpKind                  { return OpCreateEdge }
func (op *CreateEdgeOp) ConflictKey() (string, uint64) { return "edge", uint64(op.ID) }

func (op *CreateEdgeOp) Apply(s *Store, commitEpoch common.Epoch) error {
	if _, ok := s.CurrentNodeRecord(op.Src); !ok {
		return common.NewError(common.KindNotFound, "create_edge: source node does not exist")
	}
	if _, ok := s.CurrentNodeRecord(op.Dst); !ok {
		return common.NewError(common.KindNotFound, "create_edge: destination node does not exist")
	}

	rec := EdgeRecord{
		ID: op.ID, Type: op.Type, Src: op.Src, Dst: op.Dst,
		CreatedEpoch: commitEpoch, PropBlockOff: edgePropKey(op.ID),
	}
	s.putEdge(op.ID, rec)

	for k, v := range op.Props {
		s.EdgeProps.SetProperty(edgePropKey(op.ID), k, v)
	}

	s.adjacencyList(op.Src, op.Type, common.DirOut).Insert(op.ID, commitEpoch)
	if s.backwardEdges {
		s.adjacencyList(op.Dst, op.Type, common.DirIn).Insert(op.ID, commitEpoch)
	}

	return nil
}

type DeleteEdgeOp struct {
	ID common.EdgeID
}

func (op *DeleteEdgeOp) Kind() OpKind                  { return OpDeleteEdge }
func (op *DeleteEdgeOp) ConflictKey() (string, uint64) { return "edge", uint64(op.ID) }

func (op *DeleteEdgeOp) Apply(s *Store, commitEpoch common.Epoch) error {
	rec, ok := s.CurrentEdgeRecord(op.ID)
	if !ok {
		return common.Wrap(common.KindNotFound, common.ErrNotFound, "delete_edge: edge does not exist")
	}
	rec.Flags = rec.Flags.Set(FlagDeleted)
	rec.CreatedEpoch = commitEpoch
	s.putEdge(op.ID, rec)

	s.adjacencyList(rec.Src, rec.Type, common.DirOut).Delete(op.ID)
	if s.backwardEdges {
		s.adjacencyList(rec.Dst, rec.Type, common.DirIn).Delete(op.ID)
	}

	return nil
}

type SetNodePropertyOp struct {
	Node  common.NodeID
	Key   common.PropertyKey
	Value Value
}

func (op *SetNodePropertyOp) Kind() OpKind                  { return OpSetNodeProperty }
func (op *SetNodePropertyOp) ConflictKey() (string, uint64) { return "node", uint64(op.Node) }

func (op *SetNodePropertyOp) Apply(s *Store, commitEpoch common.Epoch) error {
	if _, ok := s.CurrentNodeRecord(op.Node); !ok {
		return common.Wrap(common.KindNotFound, common.ErrNotFound, "set_node_property: node does not exist")
	}
	s.versionNodeProperties(op.Node, commitEpoch)
	s.NodeProps.SetProperty(nodePropKey(op.Node), op.Key, op.Value)
	s.MarkNodeWritten(op.Node, commitEpoch)
	return nil
}

type RemoveNodePropertyOp struct {
	Node common.NodeID
	Key  common.PropertyKey
}

func (op *RemoveNodePropertyOp) Kind() OpKind                  { return OpRemoveNodeProperty }
func (op *RemoveNodePropertyOp) ConflictKey() (string, uint64) { return "node", uint64(op.Node) }

func (op *RemoveNodePropertyOp) Apply(s *Store, commitEpoch common.Epoch) error {
	if _, ok := s.CurrentNodeRecord(op.Node); !ok {
		return common.Wrap(common.KindNotFound, common.ErrNotFound, "remove_node_property: node does not exist")
	}
	s.versionNodeProperties(op.Node, commitEpoch)
	s.NodeProps.RemoveProperty(nodePropKey(op.Node), op.Key)
	s.MarkNodeWritten(op.Node, commitEpoch)
	return nil
}

type SetEdgePropertyOp struct {
	Edge  common.EdgeID
	Key   common.PropertyKey
	Value Value
}

func (op *SetEdgePropertyOp) Kind() OpKind                  { return OpSetEdgeProperty }
func (op *SetEdgePropertyOp) ConflictKey() (string, uint64) { return "edge", uint64(op.Edge) }

func (op *SetEdgePropertyOp) Apply(s *Store, commitEpoch common.Epoch) error {
	if _, ok := s.CurrentEdgeRecord(op.Edge); !ok {
		return common.Wrap(common.KindNotFound, common.ErrNotFound, "set_edge_property: edge does not exist")
	}
	s.versionEdgeProperties(op.Edge, commitEpoch)
	s.EdgeProps.SetProperty(edgePropKey(op.Edge), op.Key, op.Value)
	s.MarkEdgeWritten(op.Edge, commitEpoch)
	return nil
}

type RemoveEdgePropertyOp struct {
	Edge common.EdgeID
	Key  common.PropertyKey
}

func (op *RemoveEdgePropertyOp) Kind() OpKind                  { return OpRemoveEdgeProperty }
func (op *RemoveEdgePropertyOp) ConflictKey() (string, uint64) { return "edge", uint64(op.Edge) }

func (op *RemoveEdgePropertyOp) Apply(s *Store, commitEpoch common.Epoch) error {
	if _, ok := s.CurrentEdgeRecord(op.Edge); !ok {
		return common.Wrap(common.KindNotFound, common.ErrNotFound, "remove_edge_property: edge does not exist")
	}
	s.versionEdgeProperties(op.Edge, commitEpoch)
	s.EdgeProps.RemoveProperty(edgePropKey(op.Edge), op.Key)
	s.MarkEdgeWritten(op.Edge, commitEpoch)
	return nil
}

type AddNodeLabelOp struct {
	Node  common.NodeID
	Label common.LabelID
}

func (op *AddNodeLabelOp) Kind() OpKind                  { return OpAddNodeLabel }
func (op *AddNodeLabelOp) ConflictKey() (string, uint64) { return "node", uint64(op.Node) }

func (op *AddNodeLabelOp) Apply(s *Store, commitEpoch common.Epoch) error {
	rec, ok := s.CurrentNodeRecord(op.Node)
	if !ok {
		return common.Wrap(common.KindNotFound, common.ErrNotFound, "add_node_label: node does not exist")
	}
	if op.Label < MaxInlineLabels {
		rec.LabelBitmap |= 1 << uint(op.Label)
	} else {
		rec.Flags = rec.Flags.Set(FlagHasLabelOverflow)
		s.LabelOverflow.Add(op.Node, op.Label)
	}
	rec.CreatedEpoch = commitEpoch
	s.putNode(op.Node, rec)
	return nil
}

type RemoveNodeLabelOp struct {
	Node  common.NodeID
	Label common.LabelID
}

func (op *RemoveNodeLabelOp) Kind() OpKind                  { return OpRemoveNodeLabel }
func (op *RemoveNodeLabelOp) ConflictKey() (string, uint64) { return "node", uint64(op.Node) }

func (op *RemoveNodeLabelOp) Apply(s *Store, commitEpoch common.Epoch) error {
	rec, ok := s.CurrentNodeRecord(op.Node)
	if !ok {
		return common.Wrap(common.KindNotFound, common.ErrNotFound, "remove_node_label: node does not exist")
	}
	if op.Label < MaxInlineLabels {
		rec.LabelBitmap &^= 1 << uint(op.Label)
	} else {
		s.LabelOverflow.Remove(op.Node, op.Label)
	}
	rec.CreatedEpoch = commitEpoch
	s.putNode(op.Node, rec)
	return nil
}

func (s *Store) currentNodeLoc(id common.NodeID) (nodeLoc, bool) {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	loc, ok := s.nodeDir[id]
	return loc, ok
}

func (s *Store) currentEdgeLoc(id common.EdgeID) (edgeLoc, bool) {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	loc, ok := s.edgeDir[id]
	return loc, ok
}
