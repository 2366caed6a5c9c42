package storage

import (
	"github.com/grafeo-db/grafeo/src/common"
)

// denseFillRatio is the fraction of entities in a property column above
// which the column is kept as a packed array instead of a sparse map
// (spec.md §3: "Dense (present on >=50% of a label's nodes) keys live in
// packed arrays indexed by node position; sparse keys live in
// offset-encoded dictionaries").
const denseFillRatio = 0.5

// Column is one PropertyKey's values across every entity of one record
// shape that carries it. It starts sparse and is promoted to dense once
// its fill ratio crosses denseFillRatio, which maybePromote checks and
// applies.
type Column struct {
	key    common.PropertyKey
	dense  []Value          // indexed by entity id (the offset) when isDense
	sparse map[uint64]Value // offset -> value when !isDense
	isDense bool
	maxOffsetSeen uint64
}

func newColumn(key common.PropertyKey) *Column {
	return &Column{key: key, sparse: make(map[uint64]Value)}
}

func (c *Column) Get(offset uint64) (Value, bool) {
	if c.isDense {
		if offset < uint64(len(c.dense)) {
			return c.dense[offset], true
		}
		return Value{}, false
	}

	v, ok := c.sparse[offset]
	return v, ok
}

func (c *Column) Set(offset uint64, v Value) {
	if offset > c.maxOffsetSeen {
		c.maxOffsetSeen = offset
	}

	if c.isDense {
		for uint64(len(c.dense)) <= offset {
			c.dense = append(c.dense, NullValue())
		}
		c.dense[offset] = v
		return
	}

	c.sparse[offset] = v
	c.maybePromote()
}

func (c *Column) Delete(offset uint64) {
	if c.isDense {
		if offset < uint64(len(c.dense)) {
			c.dense[offset] = NullValue()
		}
		return
	}
	delete(c.sparse, offset)
}

// maybePromote converts a sparse column into a dense array once its
// occupancy relative to the highest offset observed crosses
// denseFillRatio. Promotion is a one-way street: columns never demote
// back to sparse, matching the teacher's compaction-is-forward-only bias
// elsewhere in the storage substrate.
func (c *Column) maybePromote() {
	if c.maxOffsetSeen == 0 {
		return
	}
	ratio := float64(len(c.sparse)) / float64(c.maxOffsetSeen+1)
	if ratio < denseFillRatio {
		return
	}

	dense := make([]Value, c.maxOffsetSeen+1)
	for off, v := range c.sparse {
		dense[off] = v
	}
	c.dense = dense
	c.sparse = nil
	c.isDense = true
}

// PropertyStore owns every Column for one record shape (nodes or edges).
// A NodeRecord/EdgeRecord's PropBlockOff is its entity id (nodePropKey/
// edgePropKey), and that id is the offset these columns are indexed by,
// so no separate property-block arena per entity is needed.
type PropertyStore struct {
	columns map[common.PropertyKey]*Column
}

func NewPropertyStore() *PropertyStore {
	return &PropertyStore{columns: make(map[common.PropertyKey]*Column)}
}

func (s *PropertyStore) SetProperty(offset uint64, key common.PropertyKey, v Value) {
	col, ok := s.columns[key]
	if !ok {
		col = newColumn(key)
		s.columns[key] = col
	}
	col.Set(offset, v)
}

func (s *PropertyStore) GetProperty(offset uint64, key common.PropertyKey) (Value, bool) {
	col, ok := s.columns[key]
	if !ok {
		return Value{}, false
	}
	return col.Get(offset)
}

func (s *PropertyStore) RemoveProperty(offset uint64, key common.PropertyKey) {
	if col, ok := s.columns[key]; ok {
		col.Delete(offset)
	}
}

// AllProperties materializes every (key, value) pair set at offset; used
// by get_node/get_edge and by validate()'s integrity sweep.
func (s *PropertyStore) AllProperties(offset uint64) map[common.PropertyKey]Value {
	out := make(map[common.PropertyKey]Value)
	for key, col := range s.columns {
		if v, ok := col.Get(offset); ok && !v.IsNull() {
			out[key] = v
		}
	}
	return out
}

func (s *PropertyStore) ColumnKeys() []common.PropertyKey {
	keys := make([]common.PropertyKey, 0, len(s.columns))
	for k := range s.columns {
		keys = append(keys, k)
	}
	return keys
}
