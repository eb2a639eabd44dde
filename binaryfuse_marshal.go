// binaryfuse_marshal.go - Marshal/Unmarshal for the binary fuse filter
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
	"fmt"
	"io"
)

// MarshalBinary encodes the filter into a binary form suitable for
// durable storage. A subsequent call to newBinaryFuse() will reconstruct
// the instance; the mask and segment-count-length fields are derived, not
// stored.
func (f *BinaryFuse[T]) MarshalBinary(w io.Writer) (int, error) {

	// Header: 3 64-bit words:
	//   o byte version
	//   o byte fingerprint width in bytes
	//   o byte[6] resv
	//   o uint64 seed
	//   o uint32 segment-length
	//   o uint32 segment-count
	//
	// Body:
	//   o (segment-count + 2) * segment-length fingerprints, little-endian

	var x [24]byte

	le := binary.LittleEndian

	x[0] = 1
	x[1] = byte(fingerprintSize[T]())
	le.PutUint64(x[8:16], f.Seed)
	le.PutUint32(x[16:20], f.SegmentLength)
	le.PutUint32(x[20:24], f.SegmentCount)

	wr := newErrWriter(w)
	wr.Write(x[:])
	wr.Write(fingerprintsToBytes(f.Fingerprints))

	return wr.Len(), wr.Error()
}

// newBinaryFuse reads a previously marshalled filter from buffer 'buf'
// into an in-memory instance. 'buf' is assumed to be memory mapped; on
// little-endian hosts the fingerprint table aliases it.
func newBinaryFuse[T Fingerprint](buf []byte) (*BinaryFuse[T], error) {
	if len(buf) < 24 {
		return nil, ErrTooSmall
	}

	le := binary.LittleEndian
	if ver := buf[0]; ver != 1 {
		return nil, fmt.Errorf("binary-fuse: no support to un-marshal version %d", ver)
	}
	if int(buf[1]) != fingerprintSize[T]() {
		return nil, fmt.Errorf("binary-fuse: fingerprint width %d bytes doesn't match the filter type", buf[1])
	}

	seed := le.Uint64(buf[8:16])
	sl := le.Uint32(buf[16:20])
	sc := le.Uint32(buf[20:24])
	if sl == 0 || sl&(sl-1) != 0 || sl > binaryFuseMaxSegmentLength || sc == 0 {
		return nil, fmt.Errorf("binary-fuse: corrupt segment geometry (%d x %d)", sc, sl)
	}

	need := uint64(sc+2) * uint64(sl) * uint64(fingerprintSize[T]())
	if uint64(len(buf)-24) < need {
		return nil, ErrTooSmall
	}

	f := &BinaryFuse[T]{
		Seed:               seed,
		SegmentLength:      sl,
		SegmentLengthMask:  sl - 1,
		SegmentCount:       sc,
		SegmentCountLength: sc * sl,
		Fingerprints:       bytesToFingerprints[T](buf[24 : 24+need]),
	}
	return f, nil
}
