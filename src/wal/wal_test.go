package wal_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
	"github.com/grafeo-db/grafeo/src/wal"
)

func TestAppendAndRecoverCommittedTxn(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := wal.NewWriter(fs, "/data/wal", wal.SyncNormal)
	require.NoError(t, err)

	op := &storage.CreateNodeOp{ID: 1}
	seq, err := w.Append(wal.FrameForOp(100, 0, op))
	require.NoError(t, err)
	require.Equal(t, common.LSN(1), seq)

	_, err = w.Append(wal.FrameCommit(100, 0, 7))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	store := storage.NewStore(true)
	result, err := wal.Recover(fs, "/data/wal", store)
	require.NoError(t, err)
	require.Equal(t, 1, result.AppliedTxns)
	require.Equal(t, common.Epoch(7), result.MaxEpoch)

	_, ok := store.VisibleNode(1, 7)
	require.True(t, ok)
}

func TestUncommittedTxnIsNotReplayed(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := wal.NewWriter(fs, "/data/wal", wal.SyncNormal)
	require.NoError(t, err)

	op := &storage.CreateNodeOp{ID: 1}
	_, err = w.Append(wal.FrameForOp(200, 0, op))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	store := storage.NewStore(true)
	result, err := wal.Recover(fs, "/data/wal", store)
	require.NoError(t, err)
	require.Equal(t, 0, result.AppliedTxns)
	require.Equal(t, 1, result.SkippedAborts)

	_, ok := store.VisibleNode(1, 100)
	require.False(t, ok)
}

func TestCheckpointRecordTruncatesReplayWindow(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := wal.NewWriter(fs, "/data/wal", wal.SyncNormal)
	require.NoError(t, err)

	_, err = w.Append(wal.FrameForOp(1, 0, &storage.CreateNodeOp{ID: 1}))
	require.NoError(t, err)
	_, err = w.Append(wal.FrameCommit(1, 0, 1))
	require.NoError(t, err)

	ck := wal.NewCheckpointer(w, fs, "/data/wal")
	_, err = ck.Checkpoint(1)
	require.NoError(t, err)

	_, err = w.Append(wal.FrameForOp(2, 0, &storage.CreateNodeOp{ID: 2}))
	require.NoError(t, err)
	_, err = w.Append(wal.FrameCommit(2, 0, 2))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	store := storage.NewStore(true)
	result, err := wal.Recover(fs, "/data/wal", store)
	require.NoError(t, err)
	require.Equal(t, 1, result.AppliedTxns, "replay starts after the checkpoint, so only node 2's txn replays")

	_, ok := store.VisibleNode(2, 2)
	require.True(t, ok)
}
