package storage

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/grafeo-db/grafeo/src/common"
)

// MaxDictionaryWidth bounds how many bytes a single interned string value
// may carry. spec.md §9 open question (b) leaves the threshold to the
// implementer; we pin it here and reject with ResourceExhausted beyond it.
const MaxDictionaryWidth = 1 << 20 // 1 MiB

// StringDict interns property string values so PropertyBlock columns can
// store a fixed-width dictionary id instead of a variable-length byte
// slice per cell (spec.md §3). Lookups are hashed with xxhash rather than
// Go's built-in map hashing so that collisions across large dictionaries
// stay rare and cheap to compute.
type StringDict struct {
	mu     sync.RWMutex
	byHash map[uint64][]uint32 // xxhash(bytes) -> candidate dict ids
	values [][]byte
}

func NewStringDict() *StringDict {
	return &StringDict{byHash: make(map[uint64][]uint32)}
}

// Intern returns the dictionary id for raw, assigning a new one if this
// is the first occurrence. The returned Value shares raw's backing bytes
// with the dictionary entry (copied once at insertion).
func (d *StringDict) Intern(raw []byte) (Value, error) {
	if len(raw) > MaxDictionaryWidth {
		return Value{}, common.NewError(
			common.KindResourceExhausted,
			"string value exceeds the configured dictionary width",
		)
	}

	h := xxhash.Sum64(raw)

	d.mu.RLock()
	for _, id := range d.byHash[h] {
		if string(d.values[id]) == string(raw) {
			v := d.values[id]
			d.mu.RUnlock()
			return InternedStringValue(id, v), nil
		}
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// re-check under the write lock: another writer may have interned
	// the same bytes while we upgraded.
	for _, id := range d.byHash[h] {
		if string(d.values[id]) == string(raw) {
			return InternedStringValue(id, d.values[id]), nil
		}
	}

	cp := make([]byte, len(raw))
	copy(cp, raw)

	id := uint32(len(d.values))
	d.values = append(d.values, cp)
	d.byHash[h] = append(d.byHash[h], id)

	return InternedStringValue(id, cp), nil
}

// Len reports how many distinct strings have been interned, used by the
// admin surface's detailed_stats().
func (d *StringDict) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.values)
}

// Lookup resolves a dictionary id back to its bytes. Used when a chunk
// column only carries dictionary ids and a late materialization step
// needs the actual string (e.g. Project).
func (d *StringDict) Lookup(id uint32) []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if int(id) >= len(d.values) {
		return nil
	}

	return d.values[id]
}
