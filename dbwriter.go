// dbwriter.go -- Constant membership DB built on top of the filters
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
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
)

// The on-disk DB has the following general structure:
//   - 64 byte file header: big-endian encoding of all multibyte ints
//      * magic    [4]byte
//      * flags    uint32 (filter kind in bits 8-15, fingerprint
//                 width in bytes in the low byte)
//      * salt     [16]byte random salt keying the siphash below
//      * nkeys    uint64  Number of distinct keys in the DB
//      * offtbl   uint64  File offset of the filter table (page-aligned)
//      * fltsum   uint64  Siphash-2-4 of the filter table
//
//   - A zero gap until the next page boundary; the filter table is
//     page-aligned so readers can mmap it. The table is one marshalled
//     filter (see the *_marshal.go files); all its multibyte ints are
//     little-endian to solve for the common case of x86/arm64 archs.
//   - 32 bytes of strong checksum (SHA512_256); this checksum is done
//     over the file header and the filter table.

const _Magic = "XFDB"

// filter kinds stored in the header flags
const (
	_KindXor byte = 1 + iota
	_KindFuse
	_KindBinaryFuse
)

// writer state
type wstate int

const (
	_Aborted wstate = -1
	_Open    wstate = 0
	_Frozen  wstate = 1
)

// DBWriter represents an abstraction to construct a read-only membership
// database. The underlying filter is xor, fuse or binary-fuse at any of
// the four fingerprint widths. Keys are uint64 values; AddString hashes
// a string key via xxhash. Duplicate keys are allowed: the accumulated
// key set is deduplicated in place before the filter is populated.
//
// The DB meta-data and filter table are protected by a strong checksum
// (SHA512-256), and the filter table additionally by a keyed siphash-2-4
// recorded in the header.
type DBWriter struct {
	fd   *os.File
	keys []uint64

	// siphash key: just binary encoded salt
	salt []byte

	build func(keys []uint64) (Filter, error)

	fntmp string // tmp file name
	fn    string // final file holding the filter
	state wstate
	kind  byte
	width byte
}

// NewXorDBWriter prepares file 'fn' to hold a constant membership DB
// built using an xor filter with fingerprint type T. Once frozen,
// readers open it with NewDBReader() for constant time membership
// queries.
func NewXorDBWriter[T Fingerprint](fn string) (*DBWriter, error) {
	return newDBWriter(fn, _KindXor, byte(fingerprintSize[T]()),
		func(keys []uint64) (Filter, error) {
			return BuildXor[T](keys)
		})
}

// NewFuseDBWriter prepares file 'fn' to hold a constant membership DB
// built using a classical fuse filter with fingerprint type T. The fuse
// filter needs a very large key set; prefer NewBinaryFuseDBWriter.
func NewFuseDBWriter[T Fingerprint](fn string) (*DBWriter, error) {
	return newDBWriter(fn, _KindFuse, byte(fingerprintSize[T]()),
		func(keys []uint64) (Filter, error) {
			return BuildFuse[T](keys)
		})
}

// NewBinaryFuseDBWriter prepares file 'fn' to hold a constant membership
// DB built using a binary fuse filter with fingerprint type T.
func NewBinaryFuseDBWriter[T Fingerprint](fn string) (*DBWriter, error) {
	return newDBWriter(fn, _KindBinaryFuse, byte(fingerprintSize[T]()),
		func(keys []uint64) (Filter, error) {
			return BuildBinaryFuse[T](keys)
		})
}

func newDBWriter(fn string, kind, width byte, build func([]uint64) (Filter, error)) (*DBWriter, error) {
	tmp := fmt.Sprintf("%s.tmp.%d", fn, rand32())
	fd, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	w := &DBWriter{
		fd:    fd,
		keys:  make([]uint64, 0, 1024),
		salt:  randbytes(16),
		build: build,
		fn:    fn,
		fntmp: tmp,
		kind:  kind,
		width: width,
	}

	return w, nil
}

// Len returns the number of keys added so far (duplicates included;
// they collapse at Freeze time)
func (w *DBWriter) Len() int {
	return len(w.keys)
}

// Return the filename of the underlying db
func (w *DBWriter) Filename() string {
	return w.fn
}

// Add adds a single key to the DB.
func (w *DBWriter) Add(key uint64) error {
	if w.state != _Open {
		return ErrFrozen
	}

	w.keys = append(w.keys, key)
	return nil
}

// AddKeys adds a batch of keys to the DB.
func (w *DBWriter) AddKeys(keys []uint64) error {
	if w.state != _Open {
		return ErrFrozen
	}

	w.keys = append(w.keys, keys...)
	return nil
}

// AddString adds a string key, hashed to uint64 via xxhash.
func (w *DBWriter) AddString(s string) error {
	return w.Add(xxhash.Sum64String(s))
}

// Abort a construction
func (w *DBWriter) Abort() error {
	if w.state != _Open {
		return ErrFrozen
	}

	return w.abort()
}

func (w *DBWriter) abort() error {
	if err := os.Remove(w.fd.Name()); err != nil {
		return err
	}

	if err := w.fd.Close(); err != nil {
		return err
	}
	w.state = _Aborted
	return nil
}

// Freeze dedups the accumulated keys, populates the filter, writes the
// DB and closes it.
func (w *DBWriter) Freeze() (err error) {
	defer func(e *error) {
		// undo the tmpfile
		if *e != nil {
			w.abort()
		}
	}(&err)

	if w.state != _Open {
		return ErrFrozen
	}

	// xor/fuse construction requires unique keys; binary-fuse merely
	// appreciates them
	keys := UniqueU64(w.keys)

	var flt Filter
	flt, err = w.build(keys)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err = flt.MarshalBinary(&buf); err != nil {
		return err
	}
	blob := buf.Bytes()

	sip := siphash.New(w.salt)
	sip.Write(blob)

	// We align the filter table to pagesize - so we can mmap it when we
	// read it back.
	pgsz := uint64(os.Getpagesize())
	pgsz_m1 := pgsz - 1
	offtbl := (64 + pgsz_m1) &^ pgsz_m1

	var ehdr [64]byte

	// header is encoded in big-endian format
	be := binary.BigEndian
	copy(ehdr[:4], _Magic)
	be.PutUint32(ehdr[4:8], uint32(w.kind)<<8|uint32(w.width))

	i := 8
	i += copy(ehdr[i:], w.salt)
	be.PutUint64(ehdr[i:i+8], uint64(len(keys)))
	i += 8
	be.PutUint64(ehdr[i:i+8], offtbl)
	i += 8
	be.PutUint64(ehdr[i:i+8], sip.Sum64())

	// calculate strong checksum over the header and filter table
	h := sha512.New512_256()
	h.Write(ehdr[:])

	// the gap between the header and offtbl stays zero
	if _, err = w.fd.Seek(int64(offtbl), 0); err != nil {
		return err
	}

	tee := io.MultiWriter(w.fd, h)
	if _, err = writeAll(tee, blob); err != nil {
		return err
	}

	// Trailer is the checksum of everything
	cksum := h.Sum(nil)
	if _, err = writeAll(w.fd, cksum[:]); err != nil {
		return err
	}

	// Finally, write the header at start of file
	if _, err = w.fd.Seek(0, 0); err != nil {
		return err
	}
	if _, err = writeAll(w.fd, ehdr[:]); err != nil {
		return err
	}

	if err = w.fd.Sync(); err != nil {
		return err
	}

	if err = w.fd.Close(); err != nil {
		return err
	}

	if err = os.Rename(w.fntmp, w.fn); err != nil {
		return err
	}
	w.state = _Frozen
	return nil
}

// write all bytes
func writeAll(w io.Writer, buf []byte) (int, error) {
	n, err := w.Write(buf)
	if err != nil {
		return 0, err
	}
	if n != len(buf) {
		return n, errShortWrite("db", n)
	}
	return n, nil
}
