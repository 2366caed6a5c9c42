package session

import (
	"context"

	"github.com/hashicorp/golang-lru"
	"go.opentelemetry.io/otel"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/exec"
	"github.com/grafeo-db/grafeo/src/optimizer"
	"github.com/grafeo-db/grafeo/src/plan"
	"github.com/grafeo-db/grafeo/src/storage"
	"github.com/grafeo-db/grafeo/src/txn"
)

const planCacheSize = 256

var tracer = otel.Tracer("github.com/grafeo-db/grafeo/src/session")

// QueryResult is the streamable chunk sequence plus schema spec.md §6's
// execute() returns. Chunks are already fully materialized here rather
// than lazily streamed; a Session is single-threaded and short-lived
// enough that buffering a query's output list costs nothing an external
// streaming API would have saved (see DESIGN.md).
type QueryResult struct {
	Columns []string
	Chunks  []*exec.Chunk
}

func (r *QueryResult) RowCount() int {
	n := 0
	for _, c := range r.Chunks {
		n += c.Len()
	}
	return n
}

// Session is a single caller's not-thread-safe handle onto a Database: an
// optional open transaction (auto-commit is implicit when none is open),
// a plan cache keyed by the logical plan's identity, and optimizer
// statistics refreshed on demand (spec.md §4.7).
type Session struct {
	db       *Database
	stats    *optimizer.Stats
	planCache *lru.Cache

	active *txn.Txn
}

func newSession(db *Database) *Session {
	cache, _ := lru.New(planCacheSize)
	return &Session{db: db, stats: optimizer.NewStats(db.store), planCache: cache}
}

// Begin opens an explicit transaction; subsequent mutation calls stage
// against it until Commit or Rollback.
func (s *Session) Begin() {
	if s.active == nil {
		s.active = s.db.mgr.Begin()
	}
}

func (s *Session) Commit() (common.Epoch, error) {
	if s.active == nil {
		return common.NilEpoch, nil
	}
	tx := s.active
	s.active = nil
	return tx.Commit()
}

func (s *Session) Rollback() error {
	if s.active == nil {
		return nil
	}
	tx := s.active
	s.active = nil
	return tx.Rollback()
}

// withTxn runs fn against the session's explicit transaction if one is
// open, otherwise against a fresh auto-commit transaction that it commits
// immediately after (spec.md §4.7's "implicit auto-commit").
func (s *Session) withTxn(fn func(*txn.Txn)) (common.Epoch, error) {
	if s.active != nil {
		fn(s.active)
		return common.NilEpoch, nil // commit deferred to the caller's explicit Commit
	}
	tx := s.db.mgr.Begin()
	fn(tx)
	return tx.Commit()
}

// CreateNode stages (and, absent an open transaction, immediately
// commits) a new node with the given labels and properties.
func (s *Session) CreateNode(labels []common.LabelID, props map[common.PropertyKey]storage.Value) (common.NodeID, error) {
	id := s.db.store.ReserveNodeID()
	_, err := s.withTxn(func(tx *txn.Txn) { tx.CreateNode(id, labels, props) })
	return id, err
}

func (s *Session) CreateEdge(typ common.EdgeTypeID, src, dst common.NodeID, props map[common.PropertyKey]storage.Value) (common.EdgeID, error) {
	id := s.db.store.ReserveEdgeID()
	_, err := s.withTxn(func(tx *txn.Txn) { tx.CreateEdge(id, typ, src, dst, props) })
	return id, err
}

func (s *Session) AddNodeLabel(id common.NodeID, label common.LabelID) error {
	_, err := s.withTxn(func(tx *txn.Txn) { tx.AddNodeLabel(id, label) })
	return err
}

func (s *Session) RemoveNodeLabel(id common.NodeID, label common.LabelID) error {
	_, err := s.withTxn(func(tx *txn.Txn) { tx.RemoveNodeLabel(id, label) })
	return err
}

// GetNodeLabels reads through the session's current snapshot: the open
// transaction's start epoch if one exists, otherwise the database's
// latest committed epoch.
func (s *Session) GetNodeLabels(id common.NodeID) ([]common.LabelID, bool) {
	rec, ok := s.db.store.VisibleNode(id, s.snapshotEpoch())
	if !ok {
		return nil, false
	}
	return s.db.store.NodeLabels(rec), true
}

func (s *Session) snapshotEpoch() common.Epoch {
	if s.active != nil {
		return s.active.StartEpoch()
	}
	return s.db.mgr.OldestActiveEpoch()
}

// RefreshStats recomputes the optimizer's cardinality model against the
// session's current snapshot; callers run this before a costly query,
// not on every call (spec.md §4.6 treats statistics as refreshed lazily).
func (s *Session) RefreshStats() { s.stats.Refresh(s.snapshotEpoch()) }

// Execute optimizes and runs a logical plan tree against the session's
// current snapshot, returning every produced chunk (spec.md §6's
// execute(); the query-language parser that turns source text into this
// plan tree is an external collaborator per spec.md §1's Non-goals).
func (s *Session) Execute(ctx context.Context, lp *plan.Node) (*QueryResult, error) {
	ctx, span := tracer.Start(ctx, "session.Execute")
	defer span.End()

	optimized, op := s.planFor(lp)

	morsels, err := exec.NewMorselPool(s.db.cfg.Threads)
	if err != nil {
		return nil, common.Wrap(common.KindIoError, err, "session: starting morsel pool")
	}
	defer morsels.Release()

	ec := &exec.ExecContext{
		Store: s.db.store, StartEpoch: s.snapshotEpoch(), Morsels: morsels,
		RowBudget: exec.NewRowBudget(s.db.cfg.MemoryLimit),
	}

	result := &QueryResult{Columns: resultColumns(optimized)}
	err = op.Execute(ctx, ec, func(c *exec.Chunk) error {
		result.Chunks = append(result.Chunks, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// planFor consults the plan cache keyed by the logical plan's pointer
// identity -- callers that re-execute the same prepared *plan.Node value
// repeatedly (a loop re-running one query) skip re-optimizing it; a
// normalized-query-text cache key belongs to the parser layer that
// doesn't exist in this core (spec.md §1's Non-goals).
func (s *Session) planFor(lp *plan.Node) (*plan.Node, exec.Operator) {
	if cached, ok := s.planCache.Get(lp); ok {
		entry := cached.(cachedPlan)
		return entry.optimized, entry.operator
	}

	optimized := optimizer.Optimize(lp, s.stats)
	op := optimizer.Lower(optimized)
	s.planCache.Add(lp, cachedPlan{optimized: optimized, operator: op})
	return optimized, op
}

type cachedPlan struct {
	optimized *plan.Node
	operator  exec.Operator
}

// resultColumns reports the variable names a plan root binds, best-effort
// from the fields Project/Aggregate/Scan/Expand populate.
func resultColumns(n *plan.Node) []string {
	switch n.Kind {
	case plan.KindProject:
		return n.Columns
	case plan.KindAggregate:
		cols := append([]string{}, n.GroupBy...)
		for _, a := range n.Aggs {
			cols = append(cols, a.OutVar)
		}
		return cols
	case plan.KindScan:
		return []string{n.AsVar}
	default:
		if len(n.Children) > 0 {
			return resultColumns(n.Children[0])
		}
		return nil
	}
}
