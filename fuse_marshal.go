// fuse_marshal.go - Marshal/Unmarshal for the fuse filter
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

// MarshalBinary encodes the filter into a binary form suitable for durable
// storage. A subsequent call to newFuse() will reconstruct the instance.
func (f *Fuse[T]) MarshalBinary(w io.Writer) (int, error) {

	// Header: 3 64-bit words:
	//   o byte version
	//   o byte fingerprint width in bytes
	//   o byte[6] resv
	//   o uint64 seed
	//   o uint64 segment-length
	//
	// Body:
	//   o 102 * segment-length fingerprints, little-endian

	var x [24]byte

	le := binary.LittleEndian

	x[0] = 1
	x[1] = byte(fingerprintSize[T]())
	le.PutUint64(x[8:16], f.Seed)
	le.PutUint64(x[16:24], f.SegmentLength)

	wr := newErrWriter(w)
	wr.Write(x[:])
	wr.Write(fingerprintsToBytes(f.Fingerprints))

	return wr.Len(), wr.Error()
}

// newFuse reads a previously marshalled filter from buffer 'buf' into an
// in-memory instance. 'buf' is assumed to be memory mapped; on
// little-endian hosts the fingerprint table aliases it.
func newFuse[T Fingerprint](buf []byte) (*Fuse[T], error) {
	if len(buf) < 24 {
		return nil, ErrTooSmall
	}

	le := binary.LittleEndian
	if ver := buf[0]; ver != 1 {
		return nil, fmt.Errorf("fuse: no support to un-marshal version %d", ver)
	}
	if int(buf[1]) != fingerprintSize[T]() {
		return nil, fmt.Errorf("fuse: fingerprint width %d bytes doesn't match the filter type", buf[1])
	}

	seed := le.Uint64(buf[8:16])
	sl := le.Uint64(buf[16:24])
	need := fuseSlots * sl * uint64(fingerprintSize[T]())
	if sl > uint64(len(buf)) || uint64(len(buf)-24) < need {
		return nil, ErrTooSmall
	}

	f := &Fuse[T]{
		Seed:          seed,
		SegmentLength: sl,
		Fingerprints:  bytesToFingerprints[T](buf[24 : 24+need]),
	}
	return f, nil
}
