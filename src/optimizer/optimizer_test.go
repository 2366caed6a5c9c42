package optimizer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/exec"
	"github.com/grafeo-db/grafeo/src/optimizer"
	"github.com/grafeo-db/grafeo/src/plan"
	"github.com/grafeo-db/grafeo/src/storage"
	"github.com/grafeo-db/grafeo/src/txn"
)

func TestFilterPushesBelowProjection(t *testing.T) {
	scan := plan.Scan(common.LabelID(1), "p")
	proj := plan.Project(scan, []string{"p"})
	pred := &plan.Expr{Kind: plan.ExprProperty, Var: "p"}
	filtered := plan.Filter(proj, pred)

	stats := optimizer.NewStats(storage.NewStore(false))
	out := optimizer.Optimize(filtered, stats)

	require.Equal(t, plan.KindProject, out.Kind)
	require.Equal(t, plan.KindFilter, out.Children[0].Kind)
	require.Equal(t, plan.KindScan, out.Children[0].Children[0].Kind)
}

func TestOptimizeKeepsInnerJoinRoot(t *testing.T) {
	store := storage.NewStore(false)
	stats := optimizer.NewStats(store)
	stats.Refresh(0)

	small := plan.Scan(common.LabelID(1), "a")
	big := plan.Scan(common.LabelID(2), "b")
	joined := plan.Join(plan.JoinInner, big, small)

	out := optimizer.Optimize(joined, stats)
	require.Equal(t, plan.KindJoin, out.Kind)
}

func TestLowerAndExecuteScan(t *testing.T) {
	store := storage.NewStore(false)
	mgr := txn.NewManager(store, nil)

	tx := mgr.Begin()
	id := store.ReserveNodeID()
	tx.CreateNode(id, []common.LabelID{1}, map[common.PropertyKey]storage.Value{1: storage.I64Value(7)})
	_, err := tx.Commit()
	require.NoError(t, err)

	reader := mgr.Begin()
	lp := plan.Scan(common.LabelID(1), "n")
	op := optimizer.Lower(lp)
	require.NotNil(t, op)

	ec := &exec.ExecContext{Store: store, StartEpoch: reader.StartEpoch()}
	var rows int
	require.NoError(t, op.Execute(context.Background(), ec, func(c *exec.Chunk) error {
		rows += c.Len()
		return nil
	}))
	require.Equal(t, 1, rows)
}

func TestAdaptiveGuardTriggersOnceOnLargeDeviation(t *testing.T) {
	g := optimizer.NewAdaptiveGuard(10)
	require.True(t, g.Observe(40))
	require.False(t, g.Observe(1000)) // bounded to one trigger per pipeline
}
