package exec

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
)

// Sink receives completed chunks pushed up from the leaves of an operator
// tree; returning an error stops the producer.
type Sink func(*Chunk) error

// ExecContext carries the pieces every operator needs to resolve rows
// against a fixed MVCC snapshot: the store to read from and the epoch the
// owning transaction began at (spec.md §4.1/§4.5).
type ExecContext struct {
	Store      *storage.Store
	StartEpoch common.Epoch
	Morsels    *MorselPool // nil disables morsel parallelism (sequential fallback)

	// RowBudget gates how many rows a buffering operator (HashJoin's
	// build side, Sort, Aggregate) may hold at once, the coarse stand-in
	// for the per-operator memory budget of spec.md §5: nil means
	// unlimited. A row is weight 1 regardless of column width -- real
	// byte accounting would need per-Value size tracking the storage
	// layer doesn't expose yet (see DESIGN.md).
	RowBudget *semaphore.Weighted
}

// NewRowBudget sizes a RowBudget from a byte ceiling using a fixed
// per-row estimate, used by session.Session to translate Config.MemoryLimit
// into something exec can gate against without per-Value byte accounting.
func NewRowBudget(memoryLimitBytes int64) *semaphore.Weighted {
	if memoryLimitBytes <= 0 {
		return nil
	}
	const estimatedBytesPerRow = 256
	rows := memoryLimitBytes / estimatedBytesPerRow
	if rows < 1 {
		rows = 1
	}
	return semaphore.NewWeighted(rows)
}

// acquireRow reserves one unit of budget for a buffered row, returning a
// ResourceExhausted error immediately rather than blocking -- a query that
// can't fit its build/sort/aggregate side in budget should fail fast, not
// stall waiting for another query's buffered rows to free up.
func acquireRow(budget *semaphore.Weighted) error {
	if budget == nil {
		return nil
	}
	if !budget.TryAcquire(1) {
		return common.NewError(common.KindResourceExhausted, "exec: row budget exhausted")
	}
	return nil
}

// Operator is one node of the physical, push-based execution tree: it
// drives its children and calls sink with each output chunk, rather than
// being pulled row-by-row (spec.md §4.5).
type Operator interface {
	Execute(ctx context.Context, ec *ExecContext, sink Sink) error
}
