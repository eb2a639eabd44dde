// xor_test.go -- test suite for the xor filter
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
	"bytes"
	"testing"
)

func TestXor8Simple(t *testing.T) {
	assert := newAsserter(t)

	keys := seqKeys(10000)
	f, err := BuildXor[uint8](keys)
	assert(err == nil, "xor8: populate failed: %s", err)

	assert(f.Contains(1), "xor8: key 1 missing")
	assert(f.Contains(5), "xor8: key 5 missing")
	assert(f.Contains(9), "xor8: key 9 missing")
	assert(f.Contains(1234), "xor8: key 1234 missing")

	for _, k := range keys {
		assert(f.Contains(k), "xor8: key %d missing", k)
	}

	assert(f.SizeInBytes() == 12370, "xor8: size exp 12370, saw %d", f.SizeInBytes())
	assert(uint64(len(f.Fingerprints)) == 3*f.BlockLength,
		"xor8: slots %d != 3 x %d", len(f.Fingerprints), f.BlockLength)
}

func TestXor8FalsePositives(t *testing.T) {
	assert := newAsserter(t)

	f, err := BuildXor[uint8](seqKeys(10000))
	assert(err == nil, "xor8: populate failed: %s", err)

	trials := 1000000
	hits := 0
	for _, q := range randomQueries(trials, 0x117) {
		if f.Contains(q) {
			hits++
		}
	}

	// expect ~2^-8 = 0.39%
	fpp := float64(hits) / float64(trials)
	assert(fpp < 0.007, "xor8: fpp too high: %f", fpp)
	assert(fpp > 0.001, "xor8: fpp suspiciously low: %f", fpp)
}

func TestXor16(t *testing.T) {
	assert := newAsserter(t)

	keys := seqKeys(10000)
	f, err := BuildXor[uint16](keys)
	assert(err == nil, "xor16: populate failed: %s", err)

	for _, k := range keys {
		assert(f.Contains(k), "xor16: key %d missing", k)
	}

	assert(f.SizeInBytes() == 24700, "xor16: size exp 24700, saw %d", f.SizeInBytes())

	trials := 1000000
	hits := 0
	for _, q := range randomQueries(trials, 0x7777) {
		if f.Contains(q) {
			hits++
		}
	}

	// expect ~2^-16 = 0.0015%; allow generous statistical headroom
	fpp := float64(hits) / float64(trials)
	assert(fpp < 1.0e-4, "xor16: fpp too high: %f", fpp)
}

func TestXor32(t *testing.T) {
	assert := newAsserter(t)

	keys := seqKeys(10000)
	f, err := BuildXor[uint32](keys)
	assert(err == nil, "xor32: populate failed: %s", err)

	for _, k := range keys {
		assert(f.Contains(k), "xor32: key %d missing", k)
	}

	hits := 0
	for _, q := range randomQueries(1000000, 0x3232) {
		if f.Contains(q) {
			hits++
		}
	}
	assert(hits == 0, "xor32: %d false positives over 1e6 trials", hits)
}

func TestXorSmallSizes(t *testing.T) {
	assert := newAsserter(t)

	for _, n := range []int{0, 1, 2, 3, 10, 100} {
		keys := seqKeys(n)
		f, err := BuildXor[uint8](keys)
		assert(err == nil, "xor8/%d: populate failed: %s", n, err)
		for _, k := range keys {
			assert(f.Contains(k), "xor8/%d: key %d missing", n, k)
		}
	}
}

func TestXorDeterminism(t *testing.T) {
	assert := newAsserter(t)

	keys := seqKeys(50000)
	a, err := BuildXor[uint8](keys)
	assert(err == nil, "populate a failed: %s", err)
	b, err := BuildXor[uint8](keys)
	assert(err == nil, "populate b failed: %s", err)

	assert(a.Seed == b.Seed, "seed mismatch: %#x vs %#x", a.Seed, b.Seed)
	assert(len(a.Fingerprints) == len(b.Fingerprints), "slot count mismatch")
	for i := range a.Fingerprints {
		assert(a.Fingerprints[i] == b.Fingerprints[i],
			"fingerprint mismatch at %d", i)
	}
}

func TestXorDuplicatesFail(t *testing.T) {
	assert := newAsserter(t)

	keys := seqKeys(1000)
	keys[999] = keys[0]

	_, err := BuildXor[uint8](keys)
	assert(err == ErrKeysNotUnique, "exp ErrKeysNotUnique, saw %v", err)

	// deduplicate first, then construction succeeds
	f, err := BuildXor[uint8](UniqueU64(keys))
	assert(err == nil, "dedup'd populate failed: %s", err)
	assert(f.Contains(0), "key 0 missing after dedup")
}

func TestXorIterator(t *testing.T) {
	assert := newAsserter(t)

	keys := seqKeys(5000)
	f := NewXor[uint16](len(keys))
	err := f.Populate(Keys(keys))
	assert(err == nil, "populate via iterator failed: %s", err)

	for _, k := range keys {
		assert(f.Contains(k), "key %d missing", k)
	}

	// populating with a different cardinality resizes the filter
	keys2 := seqKeys(200)
	err = f.Populate(Keys(keys2))
	assert(err == nil, "re-populate failed: %s", err)
	assert(f.BlockLength == xorBlockLength(200), "filter didn't resize")
	for _, k := range keys2 {
		assert(f.Contains(k), "key %d missing after re-populate", k)
	}
}

func TestXorMarshal(t *testing.T) {
	assert := newAsserter(t)

	keys := seqKeys(10000)
	f, err := BuildXor[uint16](keys)
	assert(err == nil, "populate failed: %s", err)

	var buf bytes.Buffer

	n, err := f.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %s", err)
	assert(n == buf.Len(), "marshal count exp %d, saw %d", buf.Len(), n)

	f2, err := newXor[uint16](buf.Bytes())
	assert(err == nil, "unmarshal failed: %s", err)

	assert(f.Seed == f2.Seed, "seed mismatch (exp %#x, saw %#x)", f.Seed, f2.Seed)
	assert(f.BlockLength == f2.BlockLength, "block-length mismatch (exp %d, saw %d)",
		f.BlockLength, f2.BlockLength)
	assert(len(f.Fingerprints) == len(f2.Fingerprints), "slot count mismatch (exp %d, saw %d)",
		len(f.Fingerprints), len(f2.Fingerprints))

	for i := range f.Fingerprints {
		assert(f.Fingerprints[i] == f2.Fingerprints[i], "fingerprint mismatch at %d", i)
	}

	for _, k := range keys {
		assert(f2.Contains(k), "unmarshalled filter: key %d missing", k)
	}

	// width mismatch must be rejected
	_, err = newXor[uint8](buf.Bytes())
	assert(err != nil, "unmarshal with wrong width succeeded")

	// truncated buffer must be rejected
	_, err = newXor[uint16](buf.Bytes()[:16])
	assert(err == ErrTooSmall, "truncated unmarshal: exp ErrTooSmall, saw %v", err)
}
