package exec

import (
	"runtime"
	"sync"

	"github.com/panjf2000/ants"
)

// DefaultMorselSize is the row-count granularity a Scan splits its input
// into before dispatching morsels across the worker pool (spec.md §4.5:
// "morsel-driven parallelism, ~64K rows per morsel by default").
const DefaultMorselSize = 64 * 1024

// MorselPool runs morsel-sized units of scan/filter work across a bounded
// goroutine pool, sized to the host's core count the way the teacher sizes
// its background workers. A single mutex serializes calls into the
// downstream sink so push-based fan-in never races two chunks into the
// same operator concurrently.
type MorselPool struct {
	pool   *ants.Pool
	sinkMu sync.Mutex
}

// NewMorselPool opens a pool with the given worker capacity (0 sizes it
// to runtime.NumCPU()).
func NewMorselPool(capacity int) (*MorselPool, error) {
	if capacity <= 0 {
		p, err := ants.NewPool(runtime.NumCPU())
		if err != nil {
			return nil, err
		}
		return &MorselPool{pool: p}, nil
	}
	p, err := ants.NewPool(capacity)
	if err != nil {
		return nil, err
	}
	return &MorselPool{pool: p}, nil
}

// Release shuts down the underlying goroutine pool.
func (m *MorselPool) Release() { m.pool.Release() }

// Dispatch splits n items into morsels of size DefaultMorselSize (or
// fewer, for the last one) and runs work(start, end) for each concurrently,
// blocking until every morsel completes.
func (m *MorselPool) Dispatch(n int, work func(start, end int)) error {
	if n == 0 {
		return nil
	}
	var wg sync.WaitGroup
	var submitErr error
	var errMu sync.Mutex

	for start := 0; start < n; start += DefaultMorselSize {
		end := min(start+DefaultMorselSize, n)
		wg.Add(1)
		s, e := start, end
		err := m.pool.Submit(func() {
			defer wg.Done()
			work(s, e)
		})
		if err != nil {
			wg.Done()
			errMu.Lock()
			submitErr = err
			errMu.Unlock()
		}
	}

	wg.Wait()
	return submitErr
}

// SerializedSink wraps a downstream sink so concurrent morsel workers can
// call it safely; only one goroutine is inside sink at a time.
func (m *MorselPool) SerializedSink(sink func(*Chunk) error) func(*Chunk) error {
	return func(c *Chunk) error {
		m.sinkMu.Lock()
		defer m.sinkMu.Unlock()
		return sink(c)
	}
}
