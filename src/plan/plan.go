// Package plan defines the logical plan algebra produced by the frontend
// and consumed by the optimizer (spec.md §4.6): a tree of Nodes with
// preserved source spans for error reporting.
package plan

import (
	"github.com/grafeo-db/grafeo/src/common"
)

// NodeKind tags one logical operator.
type NodeKind uint8

const (
	KindScan NodeKind = iota
	KindExpand
	KindFilter
	KindProject
	KindJoin
	KindAggregate
	KindSort
	KindShortestPath
	KindVariableLengthPath
	KindUnion
	KindDistinct
	KindInsert
	KindUpdate
	KindDelete
)

// JoinKind distinguishes the join variants the planner can emit.
type JoinKind uint8

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinAnti
	JoinSemi
)

// Expr is a minimal scalar-expression tree: a property reference, a
// literal, or a binary comparison/boolean combinator. The executor's
// Filter/Project operators evaluate these directly against a Chunk.
type Expr struct {
	Kind ExprKind
	// Property reference
	Var string
	Key common.PropertyKey
	// Literal
	Literal any
	// Binary
	Op       string
	Children []*Expr
	Span     common.SourceSpan
}

type ExprKind uint8

const (
	ExprProperty ExprKind = iota
	ExprLiteral
	ExprBinary
	ExprUnary
)

// Node is one logical operator. Only the fields relevant to Kind are
// populated; the rest are zero.
type Node struct {
	Kind NodeKind
	Span common.SourceSpan

	// Scan
	Label  common.LabelID
	AsVar  string

	// Expand
	EdgeType  common.EdgeTypeID
	Direction common.Direction
	FromVar   string
	ToVar     string
	EdgeVar   string

	// Filter/Project
	Predicate *Expr
	Columns   []string

	// Join
	Join JoinKind

	// Aggregate
	GroupBy []string
	Aggs    []AggExpr

	// Sort
	SortKeys []SortKey

	// Path
	MinHops, MaxHops int

	// Insert/Update/Delete
	Mutations []MutationSpec

	Children []*Node
}

// AggExpr is one aggregate function applied over a group.
type AggExpr struct {
	Func   string // count, sum, avg, min, max, collect
	Var    string
	Key    common.PropertyKey
	OutVar string
}

type SortKey struct {
	Var        string
	Descending bool
}

// MutationSpec describes one write the Insert/Update/Delete nodes stage
// against the active transaction (spec.md §4.2).
type MutationSpec struct {
	Kind   string // create_node, create_edge, set_property, remove_property, add_label, remove_label, delete_node, delete_edge
	Var    string
	Label  common.LabelID
	Key    common.PropertyKey
	Value  *Expr
}

// Scan builds a label (or full) scan over nodes bound to asVar.
func Scan(label common.LabelID, asVar string) *Node {
	return &Node{Kind: KindScan, Label: label, AsVar: asVar}
}

// Expand extends child with an adjacency traversal.
func Expand(child *Node, fromVar, toVar, edgeVar string, edgeType common.EdgeTypeID, dir common.Direction) *Node {
	return &Node{
		Kind: KindExpand, Children: []*Node{child},
		FromVar: fromVar, ToVar: toVar, EdgeVar: edgeVar,
		EdgeType: edgeType, Direction: dir,
	}
}

func Filter(child *Node, pred *Expr) *Node {
	return &Node{Kind: KindFilter, Children: []*Node{child}, Predicate: pred}
}

func Project(child *Node, columns []string) *Node {
	return &Node{Kind: KindProject, Children: []*Node{child}, Columns: columns}
}

func Join(kind JoinKind, left, right *Node) *Node {
	return &Node{Kind: KindJoin, Join: kind, Children: []*Node{left, right}}
}

func Aggregate(child *Node, groupBy []string, aggs []AggExpr) *Node {
	return &Node{Kind: KindAggregate, Children: []*Node{child}, GroupBy: groupBy, Aggs: aggs}
}

func Sort(child *Node, keys []SortKey) *Node {
	return &Node{Kind: KindSort, Children: []*Node{child}, SortKeys: keys}
}

// ShortestPath finds a single shortest path between fromVar and toVar
// bound by child, hopping over edgeType in dir, within [minHops,maxHops].
func ShortestPath(child *Node, fromVar, toVar, edgeVar string, edgeType common.EdgeTypeID, dir common.Direction, minHops, maxHops int) *Node {
	return &Node{
		Kind: KindShortestPath, Children: []*Node{child},
		FromVar: fromVar, ToVar: toVar, EdgeVar: edgeVar,
		EdgeType: edgeType, Direction: dir,
		MinHops: minHops, MaxHops: maxHops,
	}
}

// VariableLengthPath enumerates every path between fromVar and toVar
// within [minHops,maxHops], unlike ShortestPath which keeps only one.
func VariableLengthPath(child *Node, fromVar, toVar, edgeVar string, edgeType common.EdgeTypeID, dir common.Direction, minHops, maxHops int) *Node {
	return &Node{
		Kind: KindVariableLengthPath, Children: []*Node{child},
		FromVar: fromVar, ToVar: toVar, EdgeVar: edgeVar,
		EdgeType: edgeType, Direction: dir,
		MinHops: minHops, MaxHops: maxHops,
	}
}

// Union concatenates the rows of two same-shaped plans.
func Union(left, right *Node) *Node {
	return &Node{Kind: KindUnion, Children: []*Node{left, right}}
}

// Distinct removes duplicate rows (by the full row tuple) from child.
func Distinct(child *Node) *Node {
	return &Node{Kind: KindDistinct, Children: []*Node{child}}
}

// Insert stages create_node/create_edge mutations against the active
// transaction once child (if non-nil) has been driven to completion.
func Insert(child *Node, mutations []MutationSpec) *Node {
	n := &Node{Kind: KindInsert, Mutations: mutations}
	if child != nil {
		n.Children = []*Node{child}
	}
	return n
}

// Update stages set_property/add_label/remove_label mutations for every
// row child produces.
func Update(child *Node, mutations []MutationSpec) *Node {
	return &Node{Kind: KindUpdate, Children: []*Node{child}, Mutations: mutations}
}

// Delete stages delete_node/delete_edge mutations for every row child
// produces.
func Delete(child *Node, mutations []MutationSpec) *Node {
	return &Node{Kind: KindDelete, Children: []*Node{child}, Mutations: mutations}
}
