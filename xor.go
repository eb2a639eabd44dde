// xor.go - xor filter construction and lookup
//
// Implements the xor filter in: https://arxiv.org/abs/1912.08258
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package fastfilter

import (
	"fmt"
	"io"
	"unsafe"
)

// Xor is an immutable xor filter. Every key is a 3-uniform hyperedge over
// three disjoint ranges of block_length slots each; a key is (probably) a
// member iff the xor of its three slot fingerprints equals the key's own
// fingerprint. Memory use is ~1.23 * (bits per fingerprint) per key.
type Xor[T Fingerprint] struct {
	Seed         uint64
	BlockLength  uint64
	Fingerprints []T
}

// Common widths
type Xor8 = Xor[uint8]
type Xor16 = Xor[uint16]

// NewXor allocates an xor filter sized for 'n' keys. The filter answers
// nothing useful until Populate has run.
func NewXor[T Fingerprint](n int) *Xor[T] {
	bl := xorBlockLength(n)
	return &Xor[T]{
		BlockLength:  bl,
		Fingerprints: make([]T, 3*bl),
	}
}

// BuildXor allocates and populates an xor filter from 'keys' in one call.
// The keys must be unique; see UniqueU64.
func BuildXor[T Fingerprint](keys []uint64) (*Xor[T], error) {
	f := NewXor[T](len(keys))
	if err := f.PopulateSlice(keys); err != nil {
		return nil, err
	}
	return f, nil
}

func xorBlockLength(n int) uint64 {
	capacity := uint64(32 + 1.23*float64(n))
	return capacity / 3
}

func (f *Xor[T]) geth0(hash uint64) uint32 {
	return reduce(uint32(hash), uint32(f.BlockLength))
}

func (f *Xor[T]) geth1(hash uint64) uint32 {
	return reduce(uint32(rotl64(hash, 21)), uint32(f.BlockLength))
}

func (f *Xor[T]) geth2(hash uint64) uint32 {
	return reduce(uint32(rotl64(hash, 42)), uint32(f.BlockLength))
}

// PopulateSlice is a convenience wrapper around Populate for a key slice.
func (f *Xor[T]) PopulateSlice(keys []uint64) error {
	return f.Populate(Keys(keys))
}

// Populate builds the filter from the keys produced by 'it'. The keys
// must be unique and the iterator must rewind at end-of-sequence: every
// failed peel attempt rescans it under a fresh seed. Populate either
// leaves a fully valid filter or returns ErrKeysNotUnique after
// exhausting its seed retries.
func (f *Xor[T]) Populate(it KeyIterator) error {
	n := it.Len()
	if bl := xorBlockLength(n); bl != f.BlockLength || 3*bl != uint64(len(f.Fingerprints)) {
		f.BlockLength = bl
		f.Fingerprints = make([]T, 3*bl)
	} else {
		clear(f.Fingerprints)
	}

	bl := uint32(f.BlockLength)

	// three partitioned slot ranges, each with its own degree-1 queue
	sets0 := make([]xorset, bl)
	sets1 := make([]xorset, bl)
	sets2 := make([]xorset, bl)
	q0 := make([]keyindex, bl)
	q1 := make([]keyindex, bl)
	q2 := make([]keyindex, bl)
	stack := make([]keyindex, n)

	rng := uint64(1)
	f.Seed = splitmix64(&rng)

	iterations := 0
	for {
		iterations++
		if iterations > maxIterations {
			return ErrKeysNotUnique
		}

		// scan pass: accumulate each key into its three buckets
		for k, ok := it.Next(); ok; k, ok = it.Next() {
			h := mixsplit(k, f.Seed)
			h0 := f.geth0(h)
			h1 := f.geth1(h)
			h2 := f.geth2(h)
			sets0[h0].xormask ^= h
			sets0[h0].count++
			sets1[h1].xormask ^= h
			sets1[h1].count++
			sets2[h2].xormask ^= h
			sets2[h2].count++
		}

		// harvest buckets holding exactly one key; their residual
		// xormask is that key's hash
		q0size, q1size, q2size := 0, 0, 0
		for i := uint32(0); i < bl; i++ {
			if sets0[i].count == 1 {
				q0[q0size] = keyindex{hash: sets0[i].xormask, index: i}
				q0size++
			}
		}
		for i := uint32(0); i < bl; i++ {
			if sets1[i].count == 1 {
				q1[q1size] = keyindex{hash: sets1[i].xormask, index: i}
				q1size++
			}
		}
		for i := uint32(0); i < bl; i++ {
			if sets2[i].count == 1 {
				q2[q2size] = keyindex{hash: sets2[i].xormask, index: i}
				q2size++
			}
		}

		// peel: removing an edge may expose new degree-1 buckets in
		// the other two ranges
		stacksize := 0
		for q0size+q1size+q2size > 0 {
			for q0size > 0 {
				q0size--
				ki := q0[q0size]
				if sets0[ki.index].count == 0 {
					continue
				}
				h1 := f.geth1(ki.hash)
				h2 := f.geth2(ki.hash)

				// stack records the global slot id
				stack[stacksize] = ki
				stacksize++

				sets1[h1].xormask ^= ki.hash
				sets1[h1].count--
				if sets1[h1].count == 1 {
					q1[q1size] = keyindex{hash: sets1[h1].xormask, index: h1}
					q1size++
				}
				sets2[h2].xormask ^= ki.hash
				sets2[h2].count--
				if sets2[h2].count == 1 {
					q2[q2size] = keyindex{hash: sets2[h2].xormask, index: h2}
					q2size++
				}
			}
			for q1size > 0 {
				q1size--
				ki := q1[q1size]
				if sets1[ki.index].count == 0 {
					continue
				}
				h0 := f.geth0(ki.hash)
				h2 := f.geth2(ki.hash)

				ki.index += bl
				stack[stacksize] = ki
				stacksize++

				sets0[h0].xormask ^= ki.hash
				sets0[h0].count--
				if sets0[h0].count == 1 {
					q0[q0size] = keyindex{hash: sets0[h0].xormask, index: h0}
					q0size++
				}
				sets2[h2].xormask ^= ki.hash
				sets2[h2].count--
				if sets2[h2].count == 1 {
					q2[q2size] = keyindex{hash: sets2[h2].xormask, index: h2}
					q2size++
				}
			}
			for q2size > 0 {
				q2size--
				ki := q2[q2size]
				if sets2[ki.index].count == 0 {
					continue
				}
				h0 := f.geth0(ki.hash)
				h1 := f.geth1(ki.hash)

				ki.index += 2 * bl
				stack[stacksize] = ki
				stacksize++

				sets0[h0].xormask ^= ki.hash
				sets0[h0].count--
				if sets0[h0].count == 1 {
					q0[q0size] = keyindex{hash: sets0[h0].xormask, index: h0}
					q0size++
				}
				sets1[h1].xormask ^= ki.hash
				sets1[h1].count--
				if sets1[h1].count == 1 {
					q1[q1size] = keyindex{hash: sets1[h1].xormask, index: h1}
					q1size++
				}
			}
		}

		if stacksize == n {
			break
		}

		// hypergraph wasn't peelable; wipe the buckets and try the
		// next seed
		for i := range sets0 {
			sets0[i] = xorset{}
		}
		for i := range sets1 {
			sets1[i] = xorset{}
		}
		for i := range sets2 {
			sets2[i] = xorset{}
		}
		f.Seed = splitmix64(&rng)
	}

	// assign fingerprints in reverse peel order: each popped edge's
	// chosen slot is still vacant while its other two slots are final
	for i := n - 1; i >= 0; i-- {
		ki := stack[i]
		val := T(fingerprint(ki.hash))
		switch {
		case ki.index < bl:
			val ^= f.Fingerprints[f.geth1(ki.hash)+bl] ^ f.Fingerprints[f.geth2(ki.hash)+2*bl]
		case ki.index < 2*bl:
			val ^= f.Fingerprints[f.geth0(ki.hash)] ^ f.Fingerprints[f.geth2(ki.hash)+2*bl]
		default:
			val ^= f.Fingerprints[f.geth0(ki.hash)] ^ f.Fingerprints[f.geth1(ki.hash)+bl]
		}
		f.Fingerprints[ki.index] = val
	}

	return nil
}

// Contains reports whether 'key' is probably in the populated set.
func (f *Xor[T]) Contains(key uint64) bool {
	h := mixsplit(key, f.Seed)
	bl := uint32(f.BlockLength)
	fp := T(fingerprint(h))
	return fp == f.Fingerprints[f.geth0(h)]^
		f.Fingerprints[f.geth1(h)+bl]^
		f.Fingerprints[f.geth2(h)+2*bl]
}

// Len returns the number of fingerprint slots in the filter
func (f *Xor[T]) Len() int {
	return len(f.Fingerprints)
}

// SizeInBytes returns the in-memory footprint of the filter.
func (f *Xor[T]) SizeInBytes() uint64 {
	return uint64(unsafe.Sizeof(*f)) + uint64(len(f.Fingerprints)*fingerprintSize[T]())
}

// DumpMeta dumps the metadata of the xor filter
func (f *Xor[T]) DumpMeta(w io.Writer) {
	fmt.Fprintf(w, "  xor%d: seed %#x; 3x%d slots (%s)\n",
		FingerprintBits[T](), f.Seed, f.BlockLength, humansize(f.SizeInBytes()))
}
