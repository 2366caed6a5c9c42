package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/plan"
	"github.com/grafeo-db/grafeo/src/session"
	"github.com/grafeo-db/grafeo/src/storage"
)

func TestCreateNodeAndExecuteScan(t *testing.T) {
	db := session.OpenMemory(true)
	sess := db.NewSession()

	id, err := sess.CreateNode([]common.LabelID{1}, map[common.PropertyKey]storage.Value{
		1: storage.I64Value(99),
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	labels, ok := sess.GetNodeLabels(id)
	require.True(t, ok)
	require.Contains(t, labels, common.LabelID(1))

	result, err := sess.Execute(context.Background(), plan.Scan(common.LabelID(1), "n"))
	require.NoError(t, err)
	require.Equal(t, 1, result.RowCount())
}

func TestExplicitTransactionDefersCommit(t *testing.T) {
	db := session.OpenMemory(true)
	sess := db.NewSession()

	sess.Begin()
	id, err := sess.CreateNode([]common.LabelID{1}, nil)
	require.NoError(t, err)

	// not yet visible to a fresh reader until Commit runs.
	other := db.NewSession()
	_, ok := other.GetNodeLabels(id)
	require.False(t, ok)

	_, err = sess.Commit()
	require.NoError(t, err)

	_, ok = other.GetNodeLabels(id)
	require.True(t, ok)
}

func TestInfoAndValidate(t *testing.T) {
	db := session.OpenMemory(true)
	sess := db.NewSession()
	_, err := sess.CreateNode([]common.LabelID{1}, nil)
	require.NoError(t, err)

	info := db.Info()
	require.Equal(t, 1, info.NodeCount)
	require.Equal(t, "memory", info.Mode)

	require.NoError(t, db.Validate())
}
