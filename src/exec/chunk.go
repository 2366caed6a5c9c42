// Package exec implements the vectorized, push-based execution engine of
// spec.md §4.5: chunks of rows flow down from Scan/Expand through
// Filter/Project/Join/Aggregate/Sort to a final sink, each operator
// calling the next rather than being pulled by it.
package exec

import (
	"github.com/grafeo-db/grafeo/src/storage"
)

// DefaultChunkCapacity is the default number of rows per chunk (spec.md
// §4.5: "default capacity 2048, adaptively resized under memory
// pressure").
const DefaultChunkCapacity = 2048

// Chunk is a columnar batch of rows. Sel holds the 16-bit selection
// vector: only the row indices named in Sel are logically present, so a
// Filter can narrow a chunk without copying every column (spec.md §4.5).
type Chunk struct {
	Columns map[string][]storage.Value
	Sel     []uint16
}

// NewChunk allocates an empty chunk with the given column names, capacity
// pre-sized to cap.
func NewChunk(columns []string, cap int) *Chunk {
	c := &Chunk{Columns: make(map[string][]storage.Value, len(columns))}
	for _, name := range columns {
		c.Columns[name] = make([]storage.Value, 0, cap)
	}
	return c
}

// Len returns the number of logically selected rows.
func (c *Chunk) Len() int { return len(c.Sel) }

// Append adds one row's worth of values (by column name) and selects it.
func (c *Chunk) Append(row map[string]storage.Value) {
	idx := uint16(len(c.Sel))
	for name, col := range c.Columns {
		c.Columns[name] = append(col, row[name])
	}
	c.Sel = append(c.Sel, idx)
}

// At returns the value of column name at the i-th selected row.
func (c *Chunk) At(name string, i int) storage.Value {
	return c.Columns[name][c.Sel[i]]
}

// Full reports whether the chunk has reached its target capacity, used
// by Scan/Expand to decide when to flush to the sink.
func (c *Chunk) Full(capacity int) bool { return len(c.Sel) >= capacity }

// Filtered returns a new Chunk sharing this one's column storage but with
// a selection vector narrowed to the rows for which keep[i] is true.
func (c *Chunk) Filtered(keep []bool) *Chunk {
	out := &Chunk{Columns: c.Columns, Sel: make([]uint16, 0, len(c.Sel))}
	for i, sel := range c.Sel {
		if keep[i] {
			out.Sel = append(out.Sel, sel)
		}
	}
	return out
}

// Project returns a new chunk retaining only the named columns, same
// selection vector.
func (c *Chunk) Project(columns []string) *Chunk {
	out := &Chunk{Columns: make(map[string][]storage.Value, len(columns)), Sel: c.Sel}
	for _, name := range columns {
		out.Columns[name] = c.Columns[name]
	}
	return out
}
