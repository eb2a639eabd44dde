// dbreader.go -- Constant membership DB query interface
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
	"os"
	"strings"

	"crypto/sha512"
	"crypto/subtle"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
	"github.com/hashicorp/golang-lru/arc/v2"
	"github.com/opencoff/go-mmap"
)

// DBReader represents the query interface for a previously constructed
// membership database (built using DBWriter). The only meaningful
// operation on such a database is Contains().
type DBReader struct {
	flt Filter

	// recent answers; keeps hot keys from faulting mmap'd pages
	cache *arc.ARCCache[uint64, bool]

	nkeys  uint64
	salt   []byte
	fltsum uint64
	offtbl uint64
	kind   byte
	width  byte

	// original mmap slice holding the filter table
	mm *mmap.Mapping
	fd *os.File
	fn string
}

// NewDBReader reads a previously constructed database in file 'fn' and
// prepares it for querying. The filter table is memory mapped; up to
// 'cache' recent answers (default 128) are kept in memory.
func NewDBReader(fn string, cache int) (rd *DBReader, err error) {
	fd, err := os.Open(fn)
	if err != nil {
		return nil, err
	}

	// Number of answers to cache
	if cache <= 0 {
		cache = 128
	}

	rd = &DBReader{
		salt: make([]byte, 16),
		fd:   fd,
		fn:   fn,
	}

	var st os.FileInfo

	st, err = fd.Stat()
	if err != nil {
		return nil, fmt.Errorf("%s: can't stat: %w", fn, err)
	}

	if st.Size() < (64 + 32) {
		return nil, fmt.Errorf("%s: file too small or corrupted", fn)
	}

	var hdrb [64]byte

	_, err = io.ReadFull(fd, hdrb[:])
	if err != nil {
		return nil, fmt.Errorf("%s: can't read header: %w", fn, err)
	}

	offtbl, err := rd.decodeHeader(hdrb[:], st.Size())
	if err != nil {
		return nil, err
	}

	err = rd.verifyChecksum(hdrb[:], offtbl, st.Size())
	if err != nil {
		return nil, err
	}

	rd.cache, err = arc.NewARC[uint64, bool](cache)
	if err != nil {
		return nil, err
	}

	// Now, we are certain that the header and the filter table are
	// uncorrupted; mmap the table.
	mmapsz := st.Size() - int64(offtbl) - 32
	mm := mmap.New(fd)

	mapping, err := mm.Map(mmapsz, int64(offtbl), mmap.PROT_READ, mmap.F_READAHEAD)
	if err != nil {
		return nil, fmt.Errorf("%s: can't mmap %d bytes at off %d: %w",
			fn, mmapsz, offtbl, err)
	}

	bs := mapping.Bytes()
	rd.mm = mapping

	// keyed quick-check of the filter table against the header
	sip := siphash.New(rd.salt)
	sip.Write(bs)
	if sip.Sum64() != rd.fltsum {
		return nil, fmt.Errorf("%s: filter table checksum mismatch", fn)
	}

	rd.flt, err = unmarshalFilter(rd.kind, rd.width, bs)
	if err != nil {
		return nil, fmt.Errorf("%s: can't unmarshal filter: %w", fn, err)
	}

	return rd, nil
}

// Len returns the number of distinct keys the DB was built from.
func (rd *DBReader) Len() int {
	return int(rd.nkeys)
}

// Close closes the db
func (rd *DBReader) Close() {
	rd.mm.Unmap()
	rd.fd.Close()
	rd.cache.Purge()
	rd.salt = nil
	rd.flt = nil
	rd.fd = nil
	rd.fn = ""
}

// Contains reports whether 'key' is probably a member of the DB's key
// set; keys the DB was built from always answer true.
func (rd *DBReader) Contains(key uint64) bool {
	if v, ok := rd.cache.Get(key); ok {
		return v
	}

	v := rd.flt.Contains(key)
	rd.cache.Add(key, v)
	return v
}

// ContainsString reports membership of a string key added via
// DBWriter.AddString.
func (rd *DBReader) ContainsString(s string) bool {
	return rd.Contains(xxhash.Sum64String(s))
}

// Dump the metadata to io.Writer 'w'
func (rd *DBReader) DumpMeta(w io.Writer) {
	fmt.Fprintf(w, "%s", rd.Desc())
}

// Desc provides a human description of the membership db
func (rd *DBReader) Desc() string {
	var w strings.Builder

	fmt.Fprintf(&w, "XFDB: %d keys, hash-salt %#x, filter at %#x\n",
		rd.nkeys, rd.salt, rd.offtbl)
	rd.flt.DumpMeta(&w)
	return w.String()
}

// Verify checksum of all metadata: the file header and the filter table.
// We know that offtbl is within the size bounds of the file - see
// decodeHeader() below. sz is the actual file size (includes the header
// we already read).
func (rd *DBReader) verifyChecksum(hdrb []byte, offtbl uint64, sz int64) error {
	h := sha512.New512_256()
	h.Write(hdrb[:])

	// remsz is the size of the filter table (which begins at offset
	// 'offtbl'); 32 bytes of SHA512_256 trail it.
	remsz := sz - int64(offtbl) - 32

	rd.fd.Seek(int64(offtbl), 0)

	nw, err := io.CopyN(h, rd.fd, remsz)
	if err != nil {
		return fmt.Errorf("%s: metadata i/o error: %w", rd.fn, err)
	}
	if nw != remsz {
		return fmt.Errorf("%s: partial read while verifying checksum, exp %d, saw %d", rd.fn, remsz, nw)
	}

	var expsum [32]byte

	// Read the trailer -- which is the expected checksum
	rd.fd.Seek(sz-32, 0)
	_, err = io.ReadFull(rd.fd, expsum[:])
	if err != nil {
		return fmt.Errorf("%s: checksum i/o error: %w", rd.fn, err)
	}

	csum := h.Sum(nil)
	if subtle.ConstantTimeCompare(csum[:], expsum[:]) != 1 {
		return fmt.Errorf("%s: checksum failure; exp %#x, saw %#x", rd.fn, expsum[:], csum[:])
	}

	rd.fd.Seek(int64(offtbl), 0)
	return nil
}

// entry condition: b is 64 bytes long.
func (rd *DBReader) decodeHeader(b []byte, sz int64) (uint64, error) {
	if string(b[:4]) != _Magic {
		return 0, fmt.Errorf("%s: bad file magic <%s>", rd.fn, string(b[:4]))
	}

	be := binary.BigEndian

	flags := be.Uint32(b[4:8])
	rd.kind = byte(flags >> 8)
	rd.width = byte(flags)

	i := 8
	i += copy(rd.salt, b[i:i+16])
	rd.nkeys = be.Uint64(b[i : i+8])
	i += 8
	rd.offtbl = be.Uint64(b[i : i+8])
	i += 8
	rd.fltsum = be.Uint64(b[i : i+8])

	if rd.offtbl < 64 || rd.offtbl >= uint64(sz-32) {
		return 0, fmt.Errorf("%s: corrupt header", rd.fn)
	}

	switch rd.kind {
	case _KindXor, _KindFuse, _KindBinaryFuse:
	default:
		return 0, fmt.Errorf("%s: unknown filter kind %d", rd.fn, rd.kind)
	}

	return rd.offtbl, nil
}

// reconstruct the filter matching the (kind, fingerprint-width) pair in
// the header; 'buf' is the mmap'd filter table.
func unmarshalFilter(kind, width byte, buf []byte) (Filter, error) {
	switch kind {
	case _KindXor:
		switch width {
		case 1:
			return newXor[uint8](buf)
		case 2:
			return newXor[uint16](buf)
		case 4:
			return newXor[uint32](buf)
		case 8:
			return newXor[uint64](buf)
		}

	case _KindFuse:
		switch width {
		case 1:
			return newFuse[uint8](buf)
		case 2:
			return newFuse[uint16](buf)
		case 4:
			return newFuse[uint32](buf)
		case 8:
			return newFuse[uint64](buf)
		}

	case _KindBinaryFuse:
		switch width {
		case 1:
			return newBinaryFuse[uint8](buf)
		case 2:
			return newBinaryFuse[uint16](buf)
		case 4:
			return newBinaryFuse[uint32](buf)
		case 8:
			return newBinaryFuse[uint64](buf)
		}
	}

	return nil, fmt.Errorf("unknown filter kind %d / width %d", kind, width)
}
