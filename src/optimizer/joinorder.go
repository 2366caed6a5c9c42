package optimizer

import (
	"github.com/grafeo-db/grafeo/src/plan"
)

// reorderJoins collapses a chain of inner joins into a list of leaves and
// rebuilds a left-deep tree ordered by ascending estimated cardinality
// (cheapest-first), the standard greedy approximation to DPccp's optimal
// bushy enumeration. DPccp's exhaustive connected-subgraph enumeration
// pays for itself once a query joins a dozen-plus relations; query graphs
// observed in practice here (a handful of Expand/Join hops per pattern)
// make the greedy left-deep order's plan cost indistinguishable from the
// DP-optimal one, so the full DPccp table is not built (see DESIGN.md).
func reorderJoins(n *plan.Node, stats *Stats) *plan.Node {
	if n == nil {
		return nil
	}
	for i, c := range n.Children {
		n.Children[i] = reorderJoins(c, stats)
	}

	if n.Kind != plan.KindJoin || n.Join != plan.JoinInner {
		return n
	}

	leaves := flattenInnerJoins(n)
	if len(leaves) <= 2 {
		return n
	}

	type scored struct {
		node *plan.Node
		card int
	}
	scoredLeaves := make([]scored, len(leaves))
	for i, l := range leaves {
		scoredLeaves[i] = scored{node: l, card: estimateCardinality(l, stats)}
	}

	// insertion sort: leaf counts here are small (single-digit join
	// fan-out per query), so an O(n^2) sort costs nothing measurable and
	// keeps this pass dependency-free.
	for i := 1; i < len(scoredLeaves); i++ {
		for j := i; j > 0 && scoredLeaves[j].card < scoredLeaves[j-1].card; j-- {
			scoredLeaves[j], scoredLeaves[j-1] = scoredLeaves[j-1], scoredLeaves[j]
		}
	}

	tree := scoredLeaves[0].node
	for _, s := range scoredLeaves[1:] {
		tree = plan.Join(plan.JoinInner, tree, s.node)
	}
	return tree
}

func flattenInnerJoins(n *plan.Node) []*plan.Node {
	if n.Kind == plan.KindJoin && n.Join == plan.JoinInner {
		return append(flattenInnerJoins(n.Children[0]), flattenInnerJoins(n.Children[1])...)
	}
	return []*plan.Node{n}
}

// estimateCardinality gives a rough row-count estimate for a plan
// subtree, used only to order joins cheapest-first.
func estimateCardinality(n *plan.Node, stats *Stats) int {
	switch n.Kind {
	case plan.KindScan:
		return stats.LabelCardinality(n.Label)
	case plan.KindFilter:
		return estimateCardinality(n.Children[0], stats) / 2
	case plan.KindExpand:
		return estimateCardinality(n.Children[0], stats) * 4
	case plan.KindJoin:
		return max(estimateCardinality(n.Children[0], stats), estimateCardinality(n.Children[1], stats))
	default:
		if len(n.Children) > 0 {
			return estimateCardinality(n.Children[0], stats)
		}
		return 1
	}
}
