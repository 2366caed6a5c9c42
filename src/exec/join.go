package exec

import (
	"context"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/index"
	"github.com/grafeo-db/grafeo/src/plan"
	"github.com/grafeo-db/grafeo/src/storage"
)

// HashJoinOperator builds a hash table over the (typically smaller) build
// side keyed by BuildKey, then probes it with each ProbeKey row from the
// probe side, in the classic build/probe shape (spec.md §4.5's HashJoin).
// It buffers the build side in memory; spilling a build side that exceeds
// the operator's memory budget to disk-backed partitions is a known
// limitation, not yet implemented (see DESIGN.md).
type HashJoinOperator struct {
	Build      Operator
	Probe      Operator
	BuildKey   string
	ProbeKey   string
	Kind       plan.JoinKind
}

func (h *HashJoinOperator) Execute(ctx context.Context, ec *ExecContext, sink Sink) error {
	table := make(map[int64][]map[string]storage.Value)

	if err := h.Build.Execute(ctx, ec, func(c *Chunk) error {
		for i := 0; i < c.Len(); i++ {
			if err := acquireRow(ec.RowBudget); err != nil {
				return err
			}
			key := c.At(h.BuildKey, i).AsI64()
			table[key] = append(table[key], copyRow(c, i))
		}
		return nil
	}); err != nil {
		return err
	}

	return h.Probe.Execute(ctx, ec, func(c *Chunk) error {
		out := &Chunk{Columns: map[string][]storage.Value{}}
		emit := func(row map[string]storage.Value) error {
			for k, v := range row {
				out.Columns[k] = append(out.Columns[k], v)
			}
			out.Sel = append(out.Sel, uint16(len(out.Sel)))
			if out.Full(DefaultChunkCapacity) {
				if err := sink(out); err != nil {
					return err
				}
				out = &Chunk{Columns: map[string][]storage.Value{}}
			}
			return nil
		}

		for i := 0; i < c.Len(); i++ {
			key := c.At(h.ProbeKey, i).AsI64()
			matches := table[key]

			switch h.Kind {
			case plan.JoinSemi:
				if len(matches) > 0 {
					if err := emit(copyRow(c, i)); err != nil {
						return err
					}
				}
			case plan.JoinAnti:
				if len(matches) == 0 {
					if err := emit(copyRow(c, i)); err != nil {
						return err
					}
				}
			case plan.JoinLeft:
				if len(matches) == 0 {
					if err := emit(copyRow(c, i)); err != nil {
						return err
					}
					continue
				}
				fallthrough
			default: // JoinInner
				for _, buildRow := range matches {
					row := copyRow(c, i)
					for k, v := range buildRow {
						row[k] = v
					}
					if err := emit(row); err != nil {
						return err
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

// LeapfrogJoinOperator intersects the node ids produced by its inputs
// through index.LeapfrogJoin rather than a hash probe, used when the
// optimizer recognizes a multi-way star join over a shared node variable
// (spec.md §4.5, §9's worst-case-optimal join note).
type LeapfrogJoinOperator struct {
	Inputs []Operator
	JoinOn string // shared variable name every input binds
}

func (l *LeapfrogJoinOperator) Execute(ctx context.Context, ec *ExecContext, sink Sink) error {
	tries := make([]*index.TrieIndex, len(l.Inputs))
	rowsByID := make([]map[common.NodeID][]map[string]storage.Value, len(l.Inputs))

	for i, in := range l.Inputs {
		ids := make([]common.NodeID, 0)
		rows := make(map[common.NodeID][]map[string]storage.Value)
		if err := in.Execute(ctx, ec, func(c *Chunk) error {
			for r := 0; r < c.Len(); r++ {
				id := common.NodeID(c.At(l.JoinOn, r).AsI64())
				ids = append(ids, id)
				rows[id] = append(rows[id], copyRow(c, r))
			}
			return nil
		}); err != nil {
			return err
		}
		tries[i] = index.NewTrieIndex(ids)
		rowsByID[i] = rows
	}

	iters := make([]*index.LeapfrogIterator, len(tries))
	for i, t := range tries {
		iters[i] = t.Iterator()
	}

	matched := index.LeapfrogJoin(iters)
	if len(matched) == 0 {
		return nil
	}

	out := &Chunk{Columns: map[string][]storage.Value{}}
	for _, id := range matched {
		// cross product of every input's rows sharing this id; star joins
		// in practice bind one row per input per id.
		combos := []map[string]storage.Value{{}}
		for i := range l.Inputs {
			var next []map[string]storage.Value
			for _, base := range combos {
				for _, r := range rowsByID[i][id] {
					merged := make(map[string]storage.Value, len(base)+len(r))
					for k, v := range base {
						merged[k] = v
					}
					for k, v := range r {
						merged[k] = v
					}
					next = append(next, merged)
				}
			}
			combos = next
		}
		for _, row := range combos {
			for k, v := range row {
				out.Columns[k] = append(out.Columns[k], v)
			}
			out.Sel = append(out.Sel, uint16(len(out.Sel)))
			if out.Full(DefaultChunkCapacity) {
				if err := sink(out); err != nil {
					return err
				}
				out = &Chunk{Columns: map[string][]storage.Value{}}
			}
		}
	}

	if out.Len() > 0 {
		return sink(out)
	}
	return nil
}
