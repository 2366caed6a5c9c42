package exec

import (
	"context"
	"fmt"

	"github.com/grafeo-db/grafeo/src/plan"
	"github.com/grafeo-db/grafeo/src/storage"
)

// AggregateOperator groups rows by GroupBy and reduces each group through
// Aggs (spec.md §4.5's Aggregate). Groups are accumulated in a plain map
// rather than the parallel-hash-then-rank-merge shuffle a distributed
// engine needs; a single-process embedded engine's aggregate fits in one
// hash table without that shuffle (documented in DESIGN.md).
type AggregateOperator struct {
	Child   Operator
	GroupBy []string
	Aggs    []plan.AggExpr
}

type aggState struct {
	count int64
	sum   float64
	min   storage.Value
	max   storage.Value
	first bool
	items []storage.Value // collect()
}

func (a *AggregateOperator) Execute(ctx context.Context, ec *ExecContext, sink Sink) error {
	groups := make(map[string][]storage.Value)     // groupKey -> group-by column values
	states := make(map[string][]*aggState)          // groupKey -> per-agg state

	newStates := func() []*aggState {
		s := make([]*aggState, len(a.Aggs))
		for i := range s {
			s[i] = &aggState{first: true}
		}
		return s
	}

	if err := a.Child.Execute(ctx, ec, func(c *Chunk) error {
		for i := 0; i < c.Len(); i++ {
			key := groupKey(c, i, a.GroupBy)
			if _, ok := states[key]; !ok {
				if err := acquireRow(ec.RowBudget); err != nil {
					return err
				}
				gv := make([]storage.Value, len(a.GroupBy))
				for gi, name := range a.GroupBy {
					gv[gi] = c.At(name, i)
				}
				groups[key] = gv
				states[key] = newStates()
			}
			for ai, agg := range a.Aggs {
				if agg.Func == "collect" {
					if err := acquireRow(ec.RowBudget); err != nil {
						return err
					}
				}
				accumulate(states[key][ai], agg, c, i)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	out := NewChunk(append(append([]string{}, a.GroupBy...), aggOutVars(a.Aggs)...), DefaultChunkCapacity)
	for key, gv := range groups {
		row := make(map[string]storage.Value, len(a.GroupBy)+len(a.Aggs))
		for i, name := range a.GroupBy {
			row[name] = gv[i]
		}
		for ai, agg := range a.Aggs {
			row[agg.OutVar] = finalize(states[key][ai], agg)
		}
		out.Append(row)
		if out.Full(DefaultChunkCapacity) {
			if err := sink(out); err != nil {
				return err
			}
			out = NewChunk(append(append([]string{}, a.GroupBy...), aggOutVars(a.Aggs)...), DefaultChunkCapacity)
		}
	}

	if out.Len() > 0 {
		return sink(out)
	}
	return nil
}

func aggOutVars(aggs []plan.AggExpr) []string {
	out := make([]string, len(aggs))
	for i, a := range aggs {
		out[i] = a.OutVar
	}
	return out
}

func groupKey(c *Chunk, i int, groupBy []string) string {
	key := ""
	for _, name := range groupBy {
		v := c.At(name, i)
		key += fmt.Sprintf("|%d:%v", v.Kind(), rawValueKey(v))
	}
	return key
}

func rawValueKey(v storage.Value) any {
	switch v.Kind() {
	case storage.KindI64:
		return v.AsI64()
	case storage.KindF64:
		return v.AsF64()
	case storage.KindString, storage.KindBytes:
		return v.AsString()
	case storage.KindBool:
		return v.AsBool()
	default:
		return nil
	}
}

func accumulate(st *aggState, agg plan.AggExpr, c *Chunk, i int) {
	var v storage.Value
	if agg.Var != "" {
		v = c.At(agg.Var, i)
	}

	switch agg.Func {
	case "count":
		st.count++
	case "sum", "avg":
		if v.Kind() == storage.KindI64 {
			st.sum += float64(v.AsI64())
			st.count++
		} else if v.Kind() == storage.KindF64 {
			st.sum += v.AsF64()
			st.count++
		}
	case "min":
		if st.first || cmpLess(v, st.min) {
			st.min = v
		}
		st.first = false
	case "max":
		if st.first || cmpLess(st.max, v) {
			st.max = v
		}
		st.first = false
	case "collect":
		st.items = append(st.items, v)
	}
}

func cmpLess(a, b storage.Value) bool {
	cmp, ok := a.Compare(b)
	return ok && cmp < 0
}

func finalize(st *aggState, agg plan.AggExpr) storage.Value {
	switch agg.Func {
	case "count":
		return storage.I64Value(st.count)
	case "sum":
		return storage.F64Value(st.sum)
	case "avg":
		if st.count == 0 {
			return storage.NullValue()
		}
		return storage.F64Value(st.sum / float64(st.count))
	case "min":
		return st.min
	case "max":
		return st.max
	case "collect":
		return storage.ListValue(st.items)
	default:
		return storage.NullValue()
	}
}
