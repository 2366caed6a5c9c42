package storage

import (
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

// BloomFilter is the per-adjacency-list membership test of spec.md §3,
// §4.3: rebuilt on compaction, conservative like ZoneMap (invariant I5) —
// it may say "maybe present" for an absent edge id, never "absent" for a
// present one. Built on bits-and-blooms/bitset rather than a hand-rolled
// []bool so the bit-packing and popcount work is shared with the wider
// Go ecosystem's standard bloom-filter building block.
type BloomFilter struct {
	bits   *bitset.BitSet
	k      uint
	m      uint
}

// NewBloomFilter sizes a filter for n expected elements at the given
// target false-positive rate.
func NewBloomFilter(n int, falsePositiveRate float64) *BloomFilter {
	if n <= 0 {
		n = 1
	}
	m := optimalM(n, falsePositiveRate)
	k := optimalK(n, m)

	return &BloomFilter{bits: bitset.New(m), k: k, m: uint(m)}
}

func optimalM(n int, p float64) uint {
	m := math.Ceil(-1 * float64(n) * math.Log(p) / math.Pow(math.Log(2), 2))
	if m < 64 {
		m = 64
	}
	return uint(m)
}

func optimalK(n int, m uint) uint {
	k := math.Round(float64(m) / float64(n) * math.Log(2))
	if k < 1 {
		k = 1
	}
	return uint(k)
}

func (f *BloomFilter) hashes(key []byte) (uint64, uint64) {
	h1 := xxhash.Sum64(key)
	h2 := xxhash.Sum64(append(key, 0xff))
	return h1, h2
}

// Add records key (typically an edge id's byte encoding) as present.
func (f *BloomFilter) Add(key []byte) {
	h1, h2 := f.hashes(key)
	for i := uint(0); i < f.k; i++ {
		idx := (h1 + uint64(i)*h2) % uint64(f.m)
		f.bits.Set(uint(idx))
	}
}

// MayContain reports whether key might be present. False means
// definitely absent.
func (f *BloomFilter) MayContain(key []byte) bool {
	h1, h2 := f.hashes(key)
	for i := uint(0); i < f.k; i++ {
		idx := (h1 + uint64(i)*h2) % uint64(f.m)
		if !f.bits.Test(uint(idx)) {
			return false
		}
	}
	return true
}
