package plan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/plan"
)

func TestScanExpandFilterChain(t *testing.T) {
	scan := plan.Scan(common.LabelID(1), "p")
	expand := plan.Expand(scan, "p", "f", "e", common.EdgeTypeID(2), common.DirOut)
	pred := &plan.Expr{Kind: plan.ExprBinary, Op: "=", Children: []*plan.Expr{
		{Kind: plan.ExprProperty, Var: "f", Key: common.PropertyKey(3)},
		{Kind: plan.ExprLiteral, Literal: int64(42)},
	}}
	filtered := plan.Filter(expand, pred)

	require.Equal(t, plan.KindFilter, filtered.Kind)
	require.Same(t, expand, filtered.Children[0])
	require.Equal(t, plan.KindExpand, expand.Kind)
	require.Same(t, scan, expand.Children[0])
	require.Equal(t, common.DirOut, expand.Direction)
}

func TestJoinAndAggregateShape(t *testing.T) {
	left := plan.Scan(common.LabelID(1), "a")
	right := plan.Scan(common.LabelID(2), "b")
	join := plan.Join(plan.JoinInner, left, right)
	agg := plan.Aggregate(join, []string{"a"}, []plan.AggExpr{
		{Func: "count", Var: "b", OutVar: "n"},
	})

	require.Equal(t, plan.JoinInner, join.Join)
	require.Len(t, agg.Aggs, 1)
	require.Equal(t, "count", agg.Aggs[0].Func)
}

func TestPathBuildersCarryHopBounds(t *testing.T) {
	scan := plan.Scan(common.LabelID(1), "s")
	sp := plan.ShortestPath(scan, "s", "t", "e", common.EdgeTypeID(1), common.DirBoth, 1, 5)
	vlp := plan.VariableLengthPath(scan, "s", "t", "e", common.EdgeTypeID(1), common.DirBoth, 1, 5)

	require.Equal(t, 1, sp.MinHops)
	require.Equal(t, 5, sp.MaxHops)
	require.Equal(t, plan.KindShortestPath, sp.Kind)
	require.Equal(t, plan.KindVariableLengthPath, vlp.Kind)
}

func TestUnionDistinctInsertUpdateDelete(t *testing.T) {
	a := plan.Scan(common.LabelID(1), "a")
	b := plan.Scan(common.LabelID(2), "b")
	u := plan.Union(a, b)
	d := plan.Distinct(u)
	require.Equal(t, plan.KindUnion, u.Kind)
	require.Equal(t, plan.KindDistinct, d.Kind)
	require.Same(t, u, d.Children[0])

	ins := plan.Insert(nil, []plan.MutationSpec{{Kind: "create_node", Var: "n", Label: common.LabelID(9)}})
	require.Nil(t, ins.Children)
	require.Equal(t, "create_node", ins.Mutations[0].Kind)

	upd := plan.Update(a, []plan.MutationSpec{{Kind: "set_property", Var: "a", Key: common.PropertyKey(4)}})
	require.Same(t, a, upd.Children[0])

	del := plan.Delete(b, []plan.MutationSpec{{Kind: "delete_node", Var: "b"}})
	require.Same(t, b, del.Children[0])
}
