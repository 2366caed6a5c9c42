package optimizer

import (
	"github.com/samber/lo"

	"github.com/grafeo-db/grafeo/src/plan"
)

// pushdownFilters moves a Filter as close to its referenced Scan/Expand as
// possible: below a Project that doesn't shadow the predicate's variables,
// and into the nearer side of a Join when the predicate only references
// one branch (spec.md §4.6's "filter/projection pushdown").
func pushdownFilters(n *plan.Node) *plan.Node {
	if n == nil {
		return nil
	}
	for i, c := range n.Children {
		n.Children[i] = pushdownFilters(c)
	}

	if n.Kind != plan.KindFilter {
		return n
	}

	child := n.Children[0]
	switch child.Kind {
	case plan.KindProject:
		if !referencesOnly(n.Predicate, child.Columns) {
			return n
		}
		child.Children[0] = &plan.Node{Kind: plan.KindFilter, Children: []*plan.Node{child.Children[0]}, Predicate: n.Predicate}
		return child
	case plan.KindJoin:
		leftVars := boundVars(child.Children[0])
		if referencesOnly(n.Predicate, leftVars) {
			child.Children[0] = &plan.Node{Kind: plan.KindFilter, Children: []*plan.Node{child.Children[0]}, Predicate: n.Predicate}
			return child
		}
		rightVars := boundVars(child.Children[1])
		if referencesOnly(n.Predicate, rightVars) {
			child.Children[1] = &plan.Node{Kind: plan.KindFilter, Children: []*plan.Node{child.Children[1]}, Predicate: n.Predicate}
			return child
		}
	}
	return n
}

// referencesOnly reports whether every property/variable reference inside
// e is among allowed.
func referencesOnly(e *plan.Expr, allowed []string) bool {
	if e == nil {
		return true
	}
	if e.Kind == plan.ExprProperty {
		return lo.Contains(allowed, e.Var)
	}
	return lo.EveryBy(e.Children, func(c *plan.Expr) bool {
		return referencesOnly(c, allowed)
	})
}

// boundVars collects every variable a subtree binds (AsVar/ToVar/EdgeVar/FromVar),
// used to decide which side of a join a pushed-down predicate belongs on.
func boundVars(n *plan.Node) []string {
	if n == nil {
		return nil
	}
	own := lo.Without([]string{n.AsVar, n.ToVar, n.EdgeVar, n.FromVar}, "")
	return append(own, lo.FlatMap(n.Children, func(c *plan.Node, _ int) []string {
		return boundVars(c)
	})...)
}

