package storage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
)

func TestCreateAndReadNode(t *testing.T) {
	s := storage.NewStore(true)

	id := s.ReserveNodeID()
	label := s.Catalog.InternLabel("Person")
	key := s.Catalog.InternPropertyKey("name")
	val, err := s.Dict.Intern([]byte("ada"))
	require.NoError(t, err)

	op := &storage.CreateNodeOp{ID: id, Labels: []common.LabelID{label}, Props: map[common.PropertyKey]storage.Value{key: val}}
	require.NoError(t, op.Apply(s, 1))

	rec, ok := s.VisibleNode(id, 1)
	require.True(t, ok)
	require.True(t, rec.HasLabel(label))

	props := s.NodeProperties(id)
	require.Equal(t, "ada", props[key].AsString())
}

func TestDeleteNodeInvisibleAfterDeleteEpoch(t *testing.T) {
	s := storage.NewStore(true)
	id := s.ReserveNodeID()

	require.NoError(t, (&storage.CreateNodeOp{ID: id}).Apply(s, 1))
	require.NoError(t, (&storage.DeleteNodeOp{ID: id}).Apply(s, 2))

	_, ok := s.VisibleNode(id, 1)
	require.True(t, ok, "snapshot before delete epoch still sees the node")

	_, ok = s.VisibleNode(id, 2)
	require.False(t, ok, "snapshot at or after delete epoch no longer sees the node")
}

func TestCreateEdgeRequiresExistingEndpoints(t *testing.T) {
	s := storage.NewStore(true)
	src := s.ReserveNodeID()
	dst := s.ReserveNodeID()
	edge := s.ReserveEdgeID()
	typ := s.Catalog.InternEdgeType("KNOWS")

	err := (&storage.CreateEdgeOp{ID: edge, Type: typ, Src: src, Dst: dst}).Apply(s, 1)
	require.Error(t, err)
	require.True(t, common.Is(err, common.KindNotFound))

	require.NoError(t, (&storage.CreateNodeOp{ID: src}).Apply(s, 1))
	require.NoError(t, (&storage.CreateNodeOp{ID: dst}).Apply(s, 1))
	require.NoError(t, (&storage.CreateEdgeOp{ID: edge, Type: typ, Src: src, Dst: dst}).Apply(s, 2))

	cursors := s.AdjacencyCursors(src, typ, common.DirOut, 2)
	require.Len(t, cursors, 1)

	seen, ok := cursors[0].Next()
	require.True(t, ok)
	require.Equal(t, edge, seen)
}

func TestBackwardEdgesDisabledSkipsInboundLists(t *testing.T) {
	s := storage.NewStore(false)
	src := s.ReserveNodeID()
	dst := s.ReserveNodeID()
	edge := s.ReserveEdgeID()
	typ := s.Catalog.InternEdgeType("KNOWS")

	require.NoError(t, (&storage.CreateNodeOp{ID: src}).Apply(s, 1))
	require.NoError(t, (&storage.CreateNodeOp{ID: dst}).Apply(s, 1))
	require.NoError(t, (&storage.CreateEdgeOp{ID: edge, Type: typ, Src: src, Dst: dst}).Apply(s, 2))

	require.Nil(t, s.AdjacencyCursors(dst, typ, common.DirIn, 2))
}

func TestOverflowLabelsPastInlineCapacity(t *testing.T) {
	s := storage.NewStore(true)
	id := s.ReserveNodeID()
	overflow := common.LabelID(storage.MaxInlineLabels + 5)

	require.NoError(t, (&storage.CreateNodeOp{ID: id, Labels: []common.LabelID{overflow}}).Apply(s, 1))

	rec, ok := s.CurrentNodeRecord(id)
	require.True(t, ok)
	require.True(t, rec.Flags.Has(storage.FlagHasLabelOverflow))
	require.Contains(t, s.NodeLabels(rec), overflow)
}

func TestGCPassPrunesSupersededVersions(t *testing.T) {
	s := storage.NewStore(true)
	id := s.ReserveNodeID()

	require.NoError(t, (&storage.CreateNodeOp{ID: id}).Apply(s, 1))
	require.NoError(t, (&storage.AddNodeLabelOp{Node: id, Label: 3}).Apply(s, 2))
	require.NoError(t, (&storage.AddNodeLabelOp{Node: id, Label: 4}).Apply(s, 3))

	_, ok := s.VisibleNode(id, 1)
	require.True(t, ok)

	s.GCPass(3)

	_, ok = s.VisibleNode(id, 1)
	require.False(t, ok, "version committed before the watermark is reclaimed")

	rec, ok := s.VisibleNode(id, 3)
	require.True(t, ok)
	require.True(t, rec.HasLabel(4))
}
