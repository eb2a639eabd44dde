// hash.go - hash primitives shared by the filter constructions
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
	"math/bits"
)

// murmur64 applies the 64-bit finalizer from MurmurHash3.
func murmur64(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// mixsplit combines a key with a filter seed into the per-key hash every
// slot index and fingerprint is derived from.
func mixsplit(key, seed uint64) uint64 {
	return murmur64(key + seed)
}

func rotl64(n uint64, c int) uint64 {
	return bits.RotateLeft64(n, c)
}

// reduce maps a 32-bit hash to [0,n) without a modulo; the multiplicative
// bias is uniform enough for the constructions.
// https://lemire.me/blog/2016/06/27/a-fast-alternative-to-the-modulo-reduction/
func reduce(hash, n uint32) uint32 {
	return uint32((uint64(hash) * uint64(n)) >> 32)
}

// fingerprint folds a 64-bit hash to the value a filter truncates and
// stores per slot.
func fingerprint(hash uint64) uint64 {
	return hash ^ (hash >> 32)
}

// splitmix64 advances '*seed' and returns the next value of the stream.
// Construction retries draw their filter seeds from this.
func splitmix64(seed *uint64) uint64 {
	*seed += 0x9E3779B97F4A7C15
	z := *seed
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// mulhi returns the high 64 bits of the 128-bit product a*b.
func mulhi(a, b uint64) uint64 {
	hi, _ := bits.Mul64(a, b)
	return hi
}
