// fuse_test.go -- test suite for the classical fuse filter
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

func TestFuse8Large(t *testing.T) {
	assert := newAsserter(t)

	keys := seqKeys(1000000)
	f, err := BuildFuse[uint8](keys)
	assert(err == nil, "fuse8: populate failed: %s", err)

	assert(uint64(len(f.Fingerprints)) == fuseSlots*f.SegmentLength,
		"fuse8: slots %d != %d x %d", len(f.Fingerprints), fuseSlots, f.SegmentLength)

	for _, k := range keys {
		assert(f.Contains(k), "fuse8: key %d missing", k)
	}

	trials := 1000000
	hits := 0
	for _, q := range randomQueries(trials, 0xf00f) {
		if f.Contains(q) {
			hits++
		}
	}

	// expect ~2^-8 = 0.39%
	fpp := float64(hits) / float64(trials)
	assert(fpp < 0.007, "fuse8: fpp too high: %f", fpp)
	assert(fpp > 0.001, "fuse8: fpp suspiciously low: %f", fpp)
}

func TestFuseDeterminism(t *testing.T) {
	assert := newAsserter(t)

	keys := seqKeys(300000)
	a, err := BuildFuse[uint8](keys)
	assert(err == nil, "populate a failed: %s", err)
	b, err := BuildFuse[uint8](keys)
	assert(err == nil, "populate b failed: %s", err)

	assert(a.Seed == b.Seed, "seed mismatch: %#x vs %#x", a.Seed, b.Seed)
	for i := range a.Fingerprints {
		assert(a.Fingerprints[i] == b.Fingerprints[i],
			"fingerprint mismatch at %d", i)
	}
}

func TestFuseMarshal(t *testing.T) {
	assert := newAsserter(t)

	keys := seqKeys(300000)
	f, err := BuildFuse[uint8](keys)
	assert(err == nil, "populate failed: %s", err)

	var buf bytes.Buffer

	n, err := f.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %s", err)
	assert(n == buf.Len(), "marshal count exp %d, saw %d", buf.Len(), n)

	f2, err := newFuse[uint8](buf.Bytes())
	assert(err == nil, "unmarshal failed: %s", err)

	assert(f.Seed == f2.Seed, "seed mismatch (exp %#x, saw %#x)", f.Seed, f2.Seed)
	assert(f.SegmentLength == f2.SegmentLength, "segment-length mismatch (exp %d, saw %d)",
		f.SegmentLength, f2.SegmentLength)

	for i := range f.Fingerprints {
		assert(f.Fingerprints[i] == f2.Fingerprints[i], "fingerprint mismatch at %d", i)
	}

	for i := 0; i < len(keys); i += 97 {
		assert(f2.Contains(keys[i]), "unmarshalled filter: key %d missing", keys[i])
	}
}
