package exec

import (
	"context"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
)

// ExpandOperator walks the adjacency lists rooted at FromVar's node,
// pushing one output row per (edge, other-endpoint) pair, joined to the
// input row it came from (spec.md §4.5's Expand).
type ExpandOperator struct {
	Child     Operator
	FromVar   string
	ToVar     string
	EdgeVar   string
	EdgeType  common.EdgeTypeID
	Direction common.Direction
}

func (e *ExpandOperator) Execute(ctx context.Context, ec *ExecContext, sink Sink) error {
	return e.Child.Execute(ctx, ec, func(in *Chunk) error {
		out := NewChunk(append(outputColumns(in), e.ToVar, e.EdgeVar), DefaultChunkCapacity)

		for i := 0; i < in.Len(); i++ {
			fromCol, ok := in.Columns[e.FromVar]
			if !ok {
				continue
			}
			from := common.NodeID(fromCol[in.Sel[i]].AsI64())

			cursors := ec.Store.AdjacencyCursors(from, e.EdgeType, e.Direction, ec.StartEpoch)
			for _, cur := range cursors {
				for {
					edgeID, has := cur.Next()
					if !has {
						break
					}
					rec, ok := ec.Store.VisibleEdge(edgeID, ec.StartEpoch)
					if !ok {
						continue
					}
					other := rec.Dst
					if other == from {
						other = rec.Src
					}

					row := copyRow(in, i)
					row[e.ToVar] = nodeRefValue(other)
					row[e.EdgeVar] = edgeRefValue(edgeID)
					out.Append(row)

					if out.Full(DefaultChunkCapacity) {
						if err := sink(out); err != nil {
							return err
						}
						out = NewChunk(append(outputColumns(in), e.ToVar, e.EdgeVar), DefaultChunkCapacity)
					}
				}
			}
		}

		if out.Len() > 0 {
			return sink(out)
		}
		return nil
	})
}

func outputColumns(c *Chunk) []string {
	cols := make([]string, 0, len(c.Columns))
	for name := range c.Columns {
		cols = append(cols, name)
	}
	return cols
}

func copyRow(c *Chunk, i int) map[string]storage.Value {
	row := make(map[string]storage.Value, len(c.Columns)+2)
	for name, col := range c.Columns {
		row[name] = col[c.Sel[i]]
	}
	return row
}
