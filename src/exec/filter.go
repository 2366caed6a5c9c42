package exec

import (
	"context"

	"github.com/grafeo-db/grafeo/src/plan"
)

// FilterOperator narrows each chunk's selection vector to rows for which
// Predicate evaluates true, without copying column storage (spec.md
// §4.5's Filter).
type FilterOperator struct {
	Child     Operator
	Predicate *plan.Expr
}

func (f *FilterOperator) Execute(ctx context.Context, ec *ExecContext, sink Sink) error {
	return f.Child.Execute(ctx, ec, func(c *Chunk) error {
		keep := make([]bool, c.Len())
		any := false
		for i := 0; i < c.Len(); i++ {
			if truthy(evalExpr(f.Predicate, c, i)) {
				keep[i] = true
				any = true
			}
		}
		if !any {
			return nil
		}
		return sink(c.Filtered(keep))
	})
}

// ProjectOperator narrows each chunk to a fixed set of output columns
// (spec.md §4.5's Project).
type ProjectOperator struct {
	Child   Operator
	Columns []string
}

func (p *ProjectOperator) Execute(ctx context.Context, ec *ExecContext, sink Sink) error {
	return p.Child.Execute(ctx, ec, func(c *Chunk) error {
		return sink(c.Project(p.Columns))
	})
}
