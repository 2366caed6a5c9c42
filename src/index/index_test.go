package index_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/index"
	"github.com/grafeo-db/grafeo/src/storage"
)

func TestHashIndexEquality(t *testing.T) {
	h := index.NewHashIndex(1)
	h.Insert(10, storage.I64Value(42))
	h.Insert(11, storage.I64Value(42))
	h.Insert(12, storage.I64Value(7))

	require.ElementsMatch(t, []common.NodeID{10, 11}, h.Lookup(storage.I64Value(42)))
	require.Equal(t, 2, h.Cardinality(storage.I64Value(42)))

	h.Remove(10, storage.I64Value(42))
	require.ElementsMatch(t, []common.NodeID{11}, h.Lookup(storage.I64Value(42)))
}

func TestBTreeIndexRange(t *testing.T) {
	b := index.NewBTreeIndex(1)
	for i := int64(0); i < 10; i++ {
		b.Insert(common.NodeID(i+1), storage.I64Value(i))
	}

	lo, hi := storage.I64Value(3), storage.I64Value(6)
	got := b.Range(&lo, &hi)
	require.Len(t, got, 4)
}

func TestLeapfrogJoinIntersection(t *testing.T) {
	a := index.NewTrieIndex([]common.NodeID{1, 2, 3, 5, 8})
	c := index.NewTrieIndex([]common.NodeID{2, 3, 4, 8})

	got := index.LeapfrogJoin([]*index.LeapfrogIterator{a.Iterator(), c.Iterator()})
	require.Equal(t, []common.NodeID{2, 3, 8}, got)
}
