package txn_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
	"github.com/grafeo-db/grafeo/src/txn"
)

func TestCommitPublishesVisibleVersion(t *testing.T) {
	store := storage.NewStore(true)
	mgr := txn.NewManager(store, nil)

	tx := mgr.Begin()
	id := store.ReserveNodeID()
	tx.CreateNode(id, nil, nil)

	epoch, err := tx.Commit()
	require.NoError(t, err)
	require.Greater(t, uint64(epoch), uint64(0))

	reader := mgr.Begin()
	_, ok := store.VisibleNode(id, reader.StartEpoch())
	require.True(t, ok)
}

func TestSnapshotIsolationHidesLaterCommits(t *testing.T) {
	store := storage.NewStore(true)
	mgr := txn.NewManager(store, nil)

	id := store.ReserveNodeID()
	setup := mgr.Begin()
	setup.CreateNode(id, nil, nil)
	_, err := setup.Commit()
	require.NoError(t, err)

	reader := mgr.Begin()

	writer := mgr.Begin()
	writer.DeleteNode(id)
	_, err = writer.Commit()
	require.NoError(t, err)

	_, ok := store.VisibleNode(id, reader.StartEpoch())
	require.True(t, ok, "reader's snapshot predates the delete and must still see the node")
}

func TestWriteConflictOnConcurrentPropertyUpdate(t *testing.T) {
	store := storage.NewStore(true)
	mgr := txn.NewManager(store, nil)
	key := store.Catalog.InternPropertyKey("score")

	id := store.ReserveNodeID()
	setup := mgr.Begin()
	setup.CreateNode(id, nil, nil)
	_, err := setup.Commit()
	require.NoError(t, err)

	txA := mgr.Begin()
	txB := mgr.Begin()

	txA.SetNodeProperty(id, key, storage.I64Value(1))
	_, err = txA.Commit()
	require.NoError(t, err)

	txB.SetNodeProperty(id, key, storage.I64Value(2))
	_, err = txB.Commit()
	require.Error(t, err)
	require.True(t, common.Is(err, common.KindWriteConflict))
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := storage.NewStore(true)
	mgr := txn.NewManager(store, nil)

	id := store.ReserveNodeID()
	tx := mgr.Begin()
	tx.CreateNode(id, nil, nil)
	require.NoError(t, tx.Rollback())

	reader := mgr.Begin()
	_, ok := store.VisibleNode(id, reader.StartEpoch())
	require.False(t, ok)
}

func TestGCAdvancesWithOldestActiveReader(t *testing.T) {
	store := storage.NewStore(true)
	mgr := txn.NewManager(store, nil)

	id := store.ReserveNodeID()
	setup := mgr.Begin()
	setup.CreateNode(id, nil, nil)
	_, err := setup.Commit()
	require.NoError(t, err)

	reader := mgr.Begin()

	mutator := mgr.Begin()
	mutator.AddNodeLabel(id, 1)
	_, err = mutator.Commit()
	require.NoError(t, err)

	require.Equal(t, reader.StartEpoch(), mgr.OldestActiveEpoch())

	mgr.GC()

	_, ok := store.VisibleNode(id, reader.StartEpoch())
	require.True(t, ok, "GC must not reclaim a version still needed by an active reader")
}
