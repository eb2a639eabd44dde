// xor_marshal.go - Marshal/Unmarshal for the xor filter
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
// storage. A subsequent call to newXor() will reconstruct the instance.
func (f *Xor[T]) MarshalBinary(w io.Writer) (int, error) {

	// Header: 3 64-bit words:
	//   o byte version
	//   o byte fingerprint width in bytes
	//   o byte[6] resv
	//   o uint64 seed
	//   o uint64 block-length
	//
	// Body:
	//   o 3 * block-length fingerprints, little-endian

	var x [24]byte

	le := binary.LittleEndian

	x[0] = 1
	x[1] = byte(fingerprintSize[T]())
	le.PutUint64(x[8:16], f.Seed)
	le.PutUint64(x[16:24], f.BlockLength)

	wr := newErrWriter(w)
	wr.Write(x[:])
	wr.Write(fingerprintsToBytes(f.Fingerprints))

	return wr.Len(), wr.Error()
}

// newXor reads a previously marshalled filter from buffer 'buf' into an
// in-memory instance. 'buf' is assumed to be memory mapped; on
// little-endian hosts the fingerprint table aliases it.
func newXor[T Fingerprint](buf []byte) (*Xor[T], error) {
	if len(buf) < 24 {
		return nil, ErrTooSmall
	}

	le := binary.LittleEndian
	if ver := buf[0]; ver != 1 {
		return nil, fmt.Errorf("xor: no support to un-marshal version %d", ver)
	}
	if int(buf[1]) != fingerprintSize[T]() {
		return nil, fmt.Errorf("xor: fingerprint width %d bytes doesn't match the filter type", buf[1])
	}

	seed := le.Uint64(buf[8:16])
	bl := le.Uint64(buf[16:24])
	need := 3 * bl * uint64(fingerprintSize[T]())
	if bl > uint64(len(buf)) || uint64(len(buf)-24) < need {
		return nil, ErrTooSmall
	}

	f := &Xor[T]{
		Seed:         seed,
		BlockLength:  bl,
		Fingerprints: bytesToFingerprints[T](buf[24 : 24+need]),
	}
	return f, nil
}
