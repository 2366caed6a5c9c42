package optimizer

import (
	"github.com/grafeo-db/grafeo/src/exec"
	"github.com/grafeo-db/grafeo/src/plan"
)

// Lower converts an optimized logical plan into the physical operator
// tree the executor drives (spec.md §4.6's "physical lowering"). Join
// nodes always lower to HashJoinOperator except for the star-join shape
// lowerStarJoin recognizes, where LeapfrogJoinOperator applies instead.
func Lower(n *plan.Node) exec.Operator {
	if n == nil {
		return nil
	}

	switch n.Kind {
	case plan.KindScan:
		return &exec.ScanOperator{Label: n.Label, AsVar: n.AsVar, HasLabel: true}

	case plan.KindExpand:
		return &exec.ExpandOperator{
			Child: Lower(n.Children[0]), FromVar: n.FromVar, ToVar: n.ToVar,
			EdgeVar: n.EdgeVar, EdgeType: n.EdgeType, Direction: n.Direction,
		}

	case plan.KindFilter:
		return &exec.FilterOperator{Child: Lower(n.Children[0]), Predicate: n.Predicate}

	case plan.KindProject:
		return &exec.ProjectOperator{Child: Lower(n.Children[0]), Columns: n.Columns}

	case plan.KindJoin:
		if star, ok := lowerStarJoin(n); ok {
			return star
		}
		left, right := n.Children[0], n.Children[1]
		buildKey, probeKey := joinKeys(left, right)
		return &exec.HashJoinOperator{
			Build: Lower(left), Probe: Lower(right),
			BuildKey: buildKey, ProbeKey: probeKey, Kind: n.Join,
		}

	case plan.KindAggregate:
		return &exec.AggregateOperator{Child: Lower(n.Children[0]), GroupBy: n.GroupBy, Aggs: n.Aggs}

	case plan.KindSort:
		return &exec.SortOperator{Child: Lower(n.Children[0]), SortKeys: n.SortKeys}

	default:
		// ShortestPath/VariableLengthPath/Union/Distinct/Insert/Update/
		// Delete lower through the session layer, which threads the
		// active transaction's mutation API directly rather than
		// through a Sink-driven Operator (spec.md §4.2): those kinds
		// never reach Lower from the optimizer's own Optimize entrypoint.
		return nil
	}
}

// joinKeys picks the shared variable both join children bind, falling
// back to each side's first bound variable when no overlap is found (the
// planner is expected to have attached an explicit join predicate in a
// fuller implementation; this engine's planner only emits joins over a
// shared node variable).
func joinKeys(left, right *plan.Node) (string, string) {
	leftVars := boundVars(left)
	rightVars := boundVars(right)
	for _, lv := range leftVars {
		for _, rv := range rightVars {
			if lv == rv {
				return lv, rv
			}
		}
	}
	if len(leftVars) > 0 && len(rightVars) > 0 {
		return leftVars[0], rightVars[0]
	}
	return "", ""
}

// lowerStarJoin recognizes a join tree whose every leaf binds the same
// variable and lowers it to one LeapfrogJoinOperator over all leaves
// instead of a cascade of binary hash joins (spec.md §4.5/§9).
func lowerStarJoin(n *plan.Node) (*exec.LeapfrogJoinOperator, bool) {
	leaves := flattenInnerJoins(n)
	if len(leaves) < 3 {
		return nil, false
	}
	shared := ""
	for _, l := range leaves {
		vars := boundVars(l)
		found := false
		for _, v := range vars {
			if shared == "" {
				shared = v
				found = true
				break
			}
			if v == shared {
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	if shared == "" {
		return nil, false
	}
	ops := make([]exec.Operator, len(leaves))
	for i, l := range leaves {
		ops[i] = Lower(l)
	}
	return &exec.LeapfrogJoinOperator{Inputs: ops, JoinOn: shared}, true
}

// Optimize applies pushdown and join-reordering rewrites and returns the
// optimized logical plan; callers then pass the result to Lower.
func Optimize(n *plan.Node, stats *Stats) *plan.Node {
	n = pushdownFilters(n)
	n = reorderJoins(n, stats)
	return n
}

// AdaptiveGuard watches one pipeline's Scan/Expand output against the
// optimizer's own estimate and flags when re-planning is warranted
// (spec.md §4.6: "re-plan when observed cardinality deviates from the
// estimate by 3x or more, at most once per pipeline run").
type AdaptiveGuard struct {
	estimated int
	triggered bool
}

func NewAdaptiveGuard(estimated int) *AdaptiveGuard {
	if estimated < 1 {
		estimated = 1
	}
	return &AdaptiveGuard{estimated: estimated}
}

// Observe reports whether actual has deviated enough from the estimate to
// warrant a re-plan; it only ever returns true once per guard.
func (g *AdaptiveGuard) Observe(actual int) bool {
	if g.triggered {
		return false
	}
	if actual >= 3*g.estimated || actual*3 <= g.estimated {
		g.triggered = true
		return true
	}
	return false
}
