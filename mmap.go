// mmap.go -- view fingerprint slices as raw bytes and back
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
	"unsafe"
)

// fingerprint tables are written little-endian. On little-endian hosts
// (the common case) both directions are zero-copy aliases, so an
// unmarshalled filter can point straight into a memory mapped file. On
// big-endian hosts we copy and swap.

// fingerprintsToBytes returns 'v' as a little-endian byte slice.
func fingerprintsToBytes[T Fingerprint](v []T) []byte {
	if len(v) == 0 {
		return nil
	}

	sz := fingerprintSize[T]()
	if hostLittleEndian || sz == 1 {
		return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*sz)
	}

	b := make([]byte, len(v)*sz)
	le := binary.LittleEndian
	for i, x := range v {
		switch sz {
		case 2:
			le.PutUint16(b[i*2:], uint16(x))
		case 4:
			le.PutUint32(b[i*4:], uint32(x))
		default:
			le.PutUint64(b[i*8:], uint64(x))
		}
	}
	return b
}

// bytesToFingerprints interprets a little-endian byte slice as a
// fingerprint table.
func bytesToFingerprints[T Fingerprint](b []byte) []T {
	sz := fingerprintSize[T]()
	n := len(b) / sz
	if n == 0 {
		return nil
	}

	if hostLittleEndian || sz == 1 {
		return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
	}

	v := make([]T, n)
	le := binary.LittleEndian
	for i := range v {
		switch sz {
		case 2:
			v[i] = T(le.Uint16(b[i*2:]))
		case 4:
			v[i] = T(le.Uint32(b[i*4:]))
		default:
			v[i] = T(le.Uint64(b[i*8:]))
		}
	}
	return v
}
