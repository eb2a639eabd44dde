// mmap_test.go -- test suite for the fingerprint byte-view helpers
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
	"encoding/binary"
	"testing"
)

func TestFingerprintBytesRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	v16 := []uint16{0x1122, 0x3344, 0xaabb}
	b := fingerprintsToBytes(v16)
	assert(len(b) == 6, "uint16 view: exp 6 bytes, saw %d", len(b))
	assert(binary.LittleEndian.Uint16(b[0:2]) == 0x1122, "uint16 view not little-endian")

	r16 := bytesToFingerprints[uint16](b)
	assert(len(r16) == len(v16), "uint16 roundtrip: exp %d, saw %d", len(v16), len(r16))
	for i := range v16 {
		assert(r16[i] == v16[i], "uint16 roundtrip mismatch at %d", i)
	}

	v64 := []uint64{0x1122334455667788, ^uint64(0), 1}
	b = fingerprintsToBytes(v64)
	assert(len(b) == 24, "uint64 view: exp 24 bytes, saw %d", len(b))
	assert(binary.LittleEndian.Uint64(b[0:8]) == v64[0], "uint64 view not little-endian")

	r64 := bytesToFingerprints[uint64](b)
	for i := range v64 {
		assert(r64[i] == v64[i], "uint64 roundtrip mismatch at %d", i)
	}

	assert(fingerprintsToBytes[uint8](nil) == nil, "nil view not nil")
	assert(bytesToFingerprints[uint32](nil) == nil, "nil table not nil")
}
