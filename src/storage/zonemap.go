package storage

// ZoneMap is a per-chunk (min, max, has-null) summary enabling data
// skipping (spec.md §3, §4.5). It is conservative: it may admit false
// positives (a chunk reported as possibly-matching that in fact has no
// matching row) but must never produce a false negative (invariant I5).
type ZoneMap struct {
	hasData bool
	min     Value
	max     Value
	hasNull bool
}

func NewZoneMap() *ZoneMap { return &ZoneMap{} }

// Observe folds one value into the summary; call once per row appended
// to the chunk this zone map covers.
func (z *ZoneMap) Observe(v Value) {
	if v.IsNull() {
		z.hasNull = true
		return
	}

	if !z.hasData {
		z.min, z.max = v, v
		z.hasData = true
		return
	}

	if c, ok := v.Compare(z.min); ok && c < 0 {
		z.min = v
	}
	if c, ok := v.Compare(z.max); ok && c > 0 {
		z.max = v
	}
}

// MayContainRange reports whether this chunk might contain a value in
// [lo, hi]. A false return is a hard guarantee the chunk has none;
// a true return is only a hint.
func (z *ZoneMap) MayContainRange(lo, hi Value) bool {
	if !z.hasData {
		return z.hasNull // an all-null chunk "matches" only null-aware predicates
	}

	if c, ok := hi.Compare(z.min); ok && c < 0 {
		return false
	}
	if c, ok := lo.Compare(z.max); ok && c > 0 {
		return false
	}

	return true
}

// HasNull reports whether any observed row was null, used by IS NULL
// pushdown.
func (z *ZoneMap) HasNull() bool { return z.hasNull }
