// fuse.go - classical fuse filter construction and lookup
//
// Implements the fuse filter in: https://arxiv.org/abs/1907.04749
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

const (
	fuseArity        = 3
	fuseSegmentCount = 100
	fuseSlots        = fuseSegmentCount + fuseArity - 1
)

// Fuse is an immutable fuse filter. It is denser than the xor filter
// (~1.138 slots per key vs ~1.23) but its fixed 100-segment geometry is
// tuned for very large key sets: construction of sets below ~125k unique
// keys fails.
//
// Deprecated: use BinaryFuse, which keeps the fill factor and works on
// arbitrarily small inputs.
type Fuse[T Fingerprint] struct {
	Seed          uint64
	SegmentLength uint64
	Fingerprints  []T
}

type Fuse8 = Fuse[uint8]

// NewFuse allocates a fuse filter sized for 'n' keys.
func NewFuse[T Fingerprint](n int) *Fuse[T] {
	sl := fuseSegmentLength(n)
	return &Fuse[T]{
		SegmentLength: sl,
		Fingerprints:  make([]T, fuseSlots*sl),
	}
}

// BuildFuse allocates and populates a fuse filter from 'keys' in one
// call. The keys must be unique; see UniqueU64.
func BuildFuse[T Fingerprint](keys []uint64) (*Fuse[T], error) {
	f := NewFuse[T](len(keys))
	if err := f.PopulateSlice(keys); err != nil {
		return nil, err
	}
	return f, nil
}

func fuseSegmentLength(n int) uint64 {
	capacity := uint64(float64(n) / 0.879)
	sl := capacity / fuseSlots
	if sl == 0 {
		sl = 1
	}
	return sl
}

// each key touches one slot in each of three consecutive segments
func (f *Fuse[T]) geth0h1h2(hash uint64) (uint32, uint32, uint32) {
	r0 := uint32(hash)
	r1 := uint32(rotl64(hash, 21))
	r2 := uint32(rotl64(hash, 42))
	r3 := uint32((0xBF58476D1CE4E5B9 * hash) >> 32)
	seg := reduce(r0, fuseSegmentCount)
	sl := uint32(f.SegmentLength)
	h0 := seg*sl + reduce(r1, sl)
	h1 := (seg+1)*sl + reduce(r2, sl)
	h2 := (seg+2)*sl + reduce(r3, sl)
	return h0, h1, h2
}

// PopulateSlice is a convenience wrapper around Populate for a key slice.
func (f *Fuse[T]) PopulateSlice(keys []uint64) error {
	return f.Populate(Keys(keys))
}

// Populate builds the filter from the keys produced by 'it'. Same
// contract as Xor.Populate: unique keys, restartable iterator. Small key
// sets (below ~125k) exhaust the retries and return ErrKeysNotUnique.
func (f *Fuse[T]) Populate(it KeyIterator) error {
	n := it.Len()
	if sl := fuseSegmentLength(n); sl != f.SegmentLength || fuseSlots*sl != uint64(len(f.Fingerprints)) {
		f.SegmentLength = sl
		f.Fingerprints = make([]T, fuseSlots*sl)
	} else {
		clear(f.Fingerprints)
	}

	// unlike the xor peel, a slot's position says nothing about
	// whether it is a key's h0, h1 or h2 (segments overlap across
	// keys), so one queue spans the whole slot space and the popped
	// slot's role is recovered by recomputing the three indices
	capacity := uint32(len(f.Fingerprints))
	sets := make([]xorset, capacity)
	queue := make([]keyindex, capacity)
	stack := make([]keyindex, n)

	rng := uint64(1)
	f.Seed = splitmix64(&rng)

	iterations := 0
	for {
		iterations++
		if iterations > maxIterations {
			return ErrKeysNotUnique
		}

		for k, ok := it.Next(); ok; k, ok = it.Next() {
			h := mixsplit(k, f.Seed)
			h0, h1, h2 := f.geth0h1h2(h)
			sets[h0].xormask ^= h
			sets[h0].count++
			sets[h1].xormask ^= h
			sets[h1].count++
			sets[h2].xormask ^= h
			sets[h2].count++
		}

		qsize := 0
		for i := uint32(0); i < capacity; i++ {
			if sets[i].count == 1 {
				queue[qsize] = keyindex{hash: sets[i].xormask, index: i}
				qsize++
			}
		}

		stacksize := 0
		for qsize > 0 {
			qsize--
			ki := queue[qsize]
			if sets[ki.index].count == 0 {
				continue
			}

			stack[stacksize] = ki
			stacksize++

			h0, h1, h2 := f.geth0h1h2(ki.hash)
			for _, at := range [fuseArity]uint32{h0, h1, h2} {
				if at == ki.index {
					continue
				}
				sets[at].xormask ^= ki.hash
				sets[at].count--
				if sets[at].count == 1 {
					queue[qsize] = keyindex{hash: sets[at].xormask, index: at}
					qsize++
				}
			}
		}

		if stacksize == n {
			break
		}

		for i := range sets {
			sets[i] = xorset{}
		}
		f.Seed = splitmix64(&rng)
	}

	for i := n - 1; i >= 0; i-- {
		ki := stack[i]
		h0, h1, h2 := f.geth0h1h2(ki.hash)
		val := T(fingerprint(ki.hash))
		switch ki.index {
		case h0:
			val ^= f.Fingerprints[h1] ^ f.Fingerprints[h2]
		case h1:
			val ^= f.Fingerprints[h0] ^ f.Fingerprints[h2]
		default:
			val ^= f.Fingerprints[h0] ^ f.Fingerprints[h1]
		}
		f.Fingerprints[ki.index] = val
	}

	return nil
}

// Contains reports whether 'key' is probably in the populated set.
func (f *Fuse[T]) Contains(key uint64) bool {
	h := mixsplit(key, f.Seed)
	fp := T(fingerprint(h))
	h0, h1, h2 := f.geth0h1h2(h)
	return fp == f.Fingerprints[h0]^f.Fingerprints[h1]^f.Fingerprints[h2]
}

// Len returns the number of fingerprint slots in the filter
func (f *Fuse[T]) Len() int {
	return len(f.Fingerprints)
}

// SizeInBytes returns the in-memory footprint of the filter.
func (f *Fuse[T]) SizeInBytes() uint64 {
	return uint64(unsafe.Sizeof(*f)) + uint64(len(f.Fingerprints)*fingerprintSize[T]())
}

// DumpMeta dumps the metadata of the fuse filter
func (f *Fuse[T]) DumpMeta(w io.Writer) {
	fmt.Fprintf(w, "  fuse%d: seed %#x; %dx%d slots (%s)\n",
		FingerprintBits[T](), f.Seed, fuseSlots, f.SegmentLength, humansize(f.SizeInBytes()))
}
