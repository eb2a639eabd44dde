// binaryfuse.go - binary fuse filter construction and lookup
//
// Implements the binary fuse filter in: https://arxiv.org/abs/2201.01174
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
	"math"
	"unsafe"
)

// the seed stream for construction retries; a fixed constant so two
// builds of the same key set produce identical filters
const binaryFuseRng = 0x726b2b9d438b9d4d

const binaryFuseMaxSegmentLength = 262144

// BinaryFuse is an immutable binary fuse filter: the same ~0.879 fill
// factor as the fuse filter, but the revised segmented construction
// works on arbitrarily small key sets and tolerates duplicate keys.
// This is the recommended filter for new code.
type BinaryFuse[T Fingerprint] struct {
	Seed               uint64
	SegmentLength      uint32
	SegmentLengthMask  uint32
	SegmentCount       uint32
	SegmentCountLength uint32
	Fingerprints       []T
}

// Common widths
type BinaryFuse8 = BinaryFuse[uint8]
type BinaryFuse16 = BinaryFuse[uint16]

// NewBinaryFuse allocates a binary fuse filter sized for 'n' keys.
func NewBinaryFuse[T Fingerprint](n int) *BinaryFuse[T] {
	f := &BinaryFuse[T]{}
	f.initParameters(n)
	return f
}

// BuildBinaryFuse allocates and populates a binary fuse filter from
// 'keys' in one call. Duplicate keys are tolerated.
func BuildBinaryFuse[T Fingerprint](keys []uint64) (*BinaryFuse[T], error) {
	f := NewBinaryFuse[T](len(keys))
	if err := f.PopulateSlice(keys); err != nil {
		return nil, err
	}
	return f, nil
}

// initParameters derives the segment geometry for 'size' keys and sizes
// the fingerprint array; the constants come from the empirical tuning in
// the binary fuse paper (arity 3).
func (f *BinaryFuse[T]) initParameters(size int) {
	if size == 0 {
		f.SegmentLength = 4
	} else {
		f.SegmentLength = uint32(1) << uint(math.Floor(math.Log(float64(size))/math.Log(3.33)+2.25))
	}
	if f.SegmentLength > binaryFuseMaxSegmentLength {
		f.SegmentLength = binaryFuseMaxSegmentLength
	}
	f.SegmentLengthMask = f.SegmentLength - 1

	capacity := 0
	if size >= 2 {
		sizeFactor := math.Max(1.125, 0.875+0.25*math.Log(1e6)/math.Log(float64(size)))
		capacity = int(math.Round(float64(size) * sizeFactor))
	}

	segmentCount := (capacity+int(f.SegmentLength)-1)/int(f.SegmentLength) - 2
	if segmentCount < 1 {
		segmentCount = 1
	}
	f.SegmentCount = uint32(segmentCount)
	f.SegmentCountLength = f.SegmentCount * f.SegmentLength

	arrayLength := int(f.SegmentCount+2) * int(f.SegmentLength)
	if len(f.Fingerprints) != arrayLength {
		f.Fingerprints = make([]T, arrayLength)
	} else {
		clear(f.Fingerprints)
	}
}

// getHashFromHash places the three hyperedge endpoints in three
// consecutive segments, with the intra-segment position picked from
// bits of the hash.
func (f *BinaryFuse[T]) getHashFromHash(hash uint64) (uint32, uint32, uint32) {
	hi := mulhi(hash, uint64(f.SegmentCountLength))
	h0 := uint32(hi)
	h1 := h0 + f.SegmentLength
	h1 ^= uint32(hash>>18) & f.SegmentLengthMask
	h2 := h1 + f.SegmentLength
	h2 ^= uint32(hash) & f.SegmentLengthMask
	return h0, h1, h2
}

func mod3(x uint8) uint8 {
	if x > 2 {
		x -= 3
	}
	return x
}

// PopulateSlice is a convenience wrapper around Populate for a key slice.
func (f *BinaryFuse[T]) PopulateSlice(keys []uint64) error {
	return f.Populate(Keys(keys))
}

// Populate builds the filter from the keys produced by 'it'. The
// iterator must rewind at end-of-sequence (retries rescan it); the keys
// need not be unique. Empty and single-key inputs succeed.
func (f *BinaryFuse[T]) Populate(it KeyIterator) error {
	size := it.Len()
	f.initParameters(size)

	rng := uint64(binaryFuseRng)
	f.Seed = splitmix64(&rng)
	if size == 0 {
		return nil
	}

	capacity := uint32(len(f.Fingerprints))

	// per-slot state: t2count keeps the incidence degree in its upper
	// 30 bits and, in its low 2 bits, the xor of the within-edge roles
	// (0/1/2) of the incident edges; t2hash is the xor of the incident
	// key hashes
	alone := make([]uint32, capacity)
	t2count := make([]uint32, capacity)
	t2hash := make([]uint64, capacity)
	reverseH := make([]uint8, size)

	// reverseOrder[size] is a non-zero stop for the bucket probing
	reverseOrder := make([]uint64, size+1)
	reverseOrder[size] = 1

	blockBits := 1
	for (1 << blockBits) < int(f.SegmentCount) {
		blockBits++
	}
	block := 1 << blockBits
	startPos := make([]uint, block)

	var h012 [5]uint32
	var stacksize, duplicates int

	iterations := 0
	for {
		iterations++
		if iterations > maxIterations {
			return ErrKeysNotUnique
		}

		// re-order key hashes by their top bits so that edges touching
		// nearby segments are processed together; buckets are uneven,
		// so placement linear-probes for a free slot
		for i := range startPos {
			startPos[i] = (uint(i) * uint(size)) >> blockBits
		}
		maskblock := uint64(block - 1)
		for k, ok := it.Next(); ok; k, ok = it.Next() {
			hash := mixsplit(k, f.Seed)
			segIdx := hash >> (64 - blockBits)
			for reverseOrder[startPos[segIdx]] != 0 {
				segIdx++
				segIdx &= maskblock
			}
			reverseOrder[startPos[segIdx]] = hash
			startPos[segIdx]++
		}

		// count incidences; back out duplicate insertions
		duplicates = 0
		countFailed := false
		for i := 0; i < size; i++ {
			hash := reverseOrder[i]
			h0, h1, h2 := f.getHashFromHash(hash)
			t2count[h0] += 4
			t2hash[h0] ^= hash
			t2count[h1] += 4
			t2count[h1] ^= 1
			t2hash[h1] ^= hash
			t2count[h2] += 4
			t2count[h2] ^= 2
			t2hash[h2] ^= hash

			// a cheap screen before the actual duplicate test: two
			// identical edges cancel at least one t2hash to zero
			if t2hash[h0]&t2hash[h1]&t2hash[h2] == 0 {
				if (t2hash[h0] == 0 && t2count[h0] == 8) ||
					(t2hash[h1] == 0 && t2count[h1] == 8) ||
					(t2hash[h2] == 0 && t2count[h2] == 8) {
					duplicates++
					t2count[h0] -= 4
					t2hash[h0] ^= hash
					t2count[h1] -= 4
					t2count[h1] ^= 1
					t2hash[h1] ^= hash
					t2count[h2] -= 4
					t2count[h2] ^= 2
					t2hash[h2] ^= hash
				}
			}
			if t2count[h0] < 4 || t2count[h1] < 4 || t2count[h2] < 4 {
				countFailed = true
			}
		}

		if !countFailed {
			// queue slots of degree one, then peel; a popped slot's
			// single remaining edge reveals its role in the low bits
			qsize := 0
			for i := uint32(0); i < capacity; i++ {
				alone[qsize] = i
				if t2count[i]>>2 == 1 {
					qsize++
				}
			}

			stacksize = 0
			for qsize > 0 {
				qsize--
				index := alone[qsize]
				if t2count[index]>>2 != 1 {
					continue
				}

				hash := t2hash[index]
				found := uint8(t2count[index] & 3)
				reverseH[stacksize] = found
				reverseOrder[stacksize] = hash
				stacksize++

				h0, h1, h2 := f.getHashFromHash(hash)
				h012[1] = h1
				h012[2] = h2
				h012[3] = h0
				h012[4] = h1

				other1 := h012[found+1]
				alone[qsize] = other1
				if t2count[other1]>>2 == 2 {
					qsize++
				}
				t2count[other1] -= 4
				t2count[other1] ^= uint32(mod3(found + 1))
				t2hash[other1] ^= hash

				other2 := h012[found+2]
				alone[qsize] = other2
				if t2count[other2]>>2 == 2 {
					qsize++
				}
				t2count[other2] -= 4
				t2count[other2] ^= uint32(mod3(found + 2))
				t2hash[other2] ^= hash
			}

			if stacksize+duplicates == size {
				break
			}
		}

		// not peelable under this seed; wipe the scratch and retry
		for i := 0; i < size; i++ {
			reverseOrder[i] = 0
		}
		clear(t2count)
		clear(t2hash)
		f.Seed = splitmix64(&rng)
	}

	// assign fingerprints in reverse peel order; h012 doubles the
	// cyclic slot list so found+1/found+2 need no wraparound
	for i := stacksize - 1; i >= 0; i-- {
		hash := reverseOrder[i]
		fp := T(fingerprint(hash))
		found := reverseH[i]
		h0, h1, h2 := f.getHashFromHash(hash)
		h012[0] = h0
		h012[1] = h1
		h012[2] = h2
		h012[3] = h0
		h012[4] = h1
		f.Fingerprints[h012[found]] = fp ^
			f.Fingerprints[h012[found+1]] ^ f.Fingerprints[h012[found+2]]
	}

	return nil
}

// Contains reports whether 'key' is probably in the populated set.
func (f *BinaryFuse[T]) Contains(key uint64) bool {
	hash := mixsplit(key, f.Seed)
	fp := T(fingerprint(hash))
	h0, h1, h2 := f.getHashFromHash(hash)
	return fp^f.Fingerprints[h0]^f.Fingerprints[h1]^f.Fingerprints[h2] == 0
}

// Len returns the number of fingerprint slots in the filter
func (f *BinaryFuse[T]) Len() int {
	return len(f.Fingerprints)
}

// SizeInBytes returns the in-memory footprint of the filter.
func (f *BinaryFuse[T]) SizeInBytes() uint64 {
	return uint64(unsafe.Sizeof(*f)) + uint64(len(f.Fingerprints)*fingerprintSize[T]())
}

// DumpMeta dumps the metadata of the binary fuse filter
func (f *BinaryFuse[T]) DumpMeta(w io.Writer) {
	fmt.Fprintf(w, "  binary-fuse%d: seed %#x; %d+2 segments of %d slots (%s)\n",
		FingerprintBits[T](), f.Seed, f.SegmentCount, f.SegmentLength, humansize(f.SizeInBytes()))
}
