package exec

import (
	"context"
	"sort"

	"github.com/grafeo-db/grafeo/src/plan"
	"github.com/grafeo-db/grafeo/src/storage"
)

// SortOperator buffers its entire input and emits it back out in one
// chunk sequence ordered by SortKeys (spec.md §4.5's Sort). Spilling to an
// external merge sort once the buffered set exceeds the operator's memory
// budget is a known limitation, not yet implemented (see DESIGN.md);
// query result sets in an embedded engine are expected to fit in memory
// far more often than in a distributed one.
type SortOperator struct {
	Child    Operator
	SortKeys []plan.SortKey
}

func (s *SortOperator) Execute(ctx context.Context, ec *ExecContext, sink Sink) error {
	var columns []string
	rows := make([]map[string]storage.Value, 0)

	if err := s.Child.Execute(ctx, ec, func(c *Chunk) error {
		if columns == nil {
			columns = outputColumns(c)
		}
		for i := 0; i < c.Len(); i++ {
			if err := acquireRow(ec.RowBudget); err != nil {
				return err
			}
			rows = append(rows, copyRow(c, i))
		}
		return nil
	}); err != nil {
		return err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range s.SortKeys {
			cmp, ok := rows[i][key.Var].Compare(rows[j][key.Var])
			if !ok {
				continue
			}
			if cmp == 0 {
				continue
			}
			if key.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	out := NewChunk(columns, DefaultChunkCapacity)
	for _, row := range rows {
		out.Append(row)
		if out.Full(DefaultChunkCapacity) {
			if err := sink(out); err != nil {
				return err
			}
			out = NewChunk(columns, DefaultChunkCapacity)
		}
	}
	if out.Len() > 0 {
		return sink(out)
	}
	return nil
}
