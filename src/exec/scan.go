package exec

import (
	"context"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
)

// ScanOperator is the leaf that materializes every node visible at the
// snapshot epoch, optionally filtered to one label, into asVar (spec.md
// §4.5's Scan). It fans the node-id list out across the morsel pool when
// one is configured, each morsel building and pushing its own chunk.
type ScanOperator struct {
	Label common.LabelID
	AsVar string
	// HasLabel gates whether Label filters the scan or the scan is a
	// full node-table scan (label id 0 is a valid label, so a bool flag
	// distinguishes "no filter" from "filter by label 0").
	HasLabel bool
}

func NewLabelScan(label common.LabelID, asVar string) *ScanOperator {
	return &ScanOperator{Label: label, AsVar: asVar, HasLabel: true}
}

func NewFullScan(asVar string) *ScanOperator {
	return &ScanOperator{AsVar: asVar}
}

func (s *ScanOperator) Execute(ctx context.Context, ec *ExecContext, sink Sink) error {
	ids := ec.Store.AllNodeIDs()

	scanRange := func(start, end int) *Chunk {
		c := NewChunk([]string{s.AsVar}, DefaultChunkCapacity)
		for _, id := range ids[start:end] {
			rec, ok := ec.Store.VisibleNode(id, ec.StartEpoch)
			if !ok {
				continue
			}
			if s.HasLabel && !rec.HasLabel(s.Label) && !hasOverflowLabel(ec.Store, rec, s.Label) {
				continue
			}
			c.Append(map[string]storage.Value{s.AsVar: nodeRefValue(id)})
			if c.Full(DefaultChunkCapacity) {
				break
			}
		}
		return c
	}

	if ec.Morsels == nil || len(ids) < DefaultMorselSize {
		for start := 0; start < len(ids); start += DefaultChunkCapacity {
			end := min(start+DefaultChunkCapacity, len(ids))
			if c := scanRange(start, end); c.Len() > 0 {
				if err := sink(c); err != nil {
					return err
				}
			}
		}
		return nil
	}

	serialized := ec.Morsels.SerializedSink(sink)
	var firstErr error
	err := ec.Morsels.Dispatch(len(ids), func(start, end int) {
		for chunkStart := start; chunkStart < end; chunkStart += DefaultChunkCapacity {
			chunkEnd := min(chunkStart+DefaultChunkCapacity, end)
			if c := scanRange(chunkStart, chunkEnd); c.Len() > 0 {
				if err := serialized(c); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
	})
	if err != nil {
		return err
	}
	return firstErr
}

// nodeRefValue boxes a node id as an i64 Value; row columns bound to node
// or edge variables carry the raw id, resolved back through the store by
// downstream operators that need labels/properties.
func nodeRefValue(id common.NodeID) storage.Value { return storage.I64Value(int64(id)) }

func edgeRefValue(id common.EdgeID) storage.Value { return storage.I64Value(int64(id)) }

func hasOverflowLabel(store *storage.Store, rec storage.NodeRecord, label common.LabelID) bool {
	if !rec.Flags.Has(storage.FlagHasLabelOverflow) {
		return false
	}
	return store.LabelOverflow.Has(rec.ID, label)
}
