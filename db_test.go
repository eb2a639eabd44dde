// db_test.go -- test suite for dbreader/dbwriter
//
// (c) Sudhi Herle 2018
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package fastfilter

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"testing"
)

var keep bool

func init() {
	flag.BoolVar(&keep, "keep", false, "Keep test DB")
}

func testDB(t *testing.T, wr *DBWriter) {
	assert := newAsserter(t)

	for _, s := range keyw {
		err := wr.AddString(s)
		assert(err == nil, "can't add key %q: %s", s, err)
	}

	// duplicates collapse at Freeze time
	err := wr.AddString(keyw[0])
	assert(err == nil, "can't re-add key %q: %s", keyw[0], err)

	err = wr.Freeze()
	assert(err == nil, "freeze failed: %s", err)

	rd, err := NewDBReader(wr.Filename(), 10)
	assert(err == nil, "read failed: %s", err)

	defer rd.Close()

	assert(rd.Len() == len(keyw), "nkeys: exp %d, saw %d", len(keyw), rd.Len())

	for _, s := range keyw {
		assert(rd.ContainsString(s), "can't find key %q", s)

		// again, off the cache
		assert(rd.ContainsString(s), "can't find cached key %q", s)
	}

	// now look for keys not in the DB; 32-bit fingerprints make a
	// false positive here implausible
	for i := 0; i < 10; i++ {
		j := rand64()
		assert(!rd.Contains(j), "whoa: found key %#x", j)
	}
}

func TestDB(t *testing.T) {
	assert := newAsserter(t)

	salt := rand.Int()
	xorFn := fmt.Sprintf("%s/xor%d.db", os.TempDir(), salt)
	bfFn := fmt.Sprintf("%s/bfuse%d.db", os.TempDir(), salt)

	xw, err := NewXorDBWriter[uint32](xorFn)
	assert(err == nil, "can't create db %s: %s", xorFn, err)

	bw, err := NewBinaryFuseDBWriter[uint32](bfFn)
	assert(err == nil, "can't create db %s: %s", bfFn, err)

	defer func() {
		if keep {
			t.Logf("DB in %s, %s retained after test\n", xorFn, bfFn)
		} else {
			os.Remove(xorFn)
			os.Remove(bfFn)
		}
	}()

	testDB(t, xw)
	testDB(t, bw)
}

func TestDBFrozen(t *testing.T) {
	assert := newAsserter(t)

	fn := fmt.Sprintf("%s/frozen%d.db", os.TempDir(), rand.Int())
	wr, err := NewBinaryFuseDBWriter[uint8](fn)
	assert(err == nil, "can't create db %s: %s", fn, err)

	defer os.Remove(fn)

	err = wr.AddKeys(seqKeys(100))
	assert(err == nil, "can't add keys: %s", err)

	err = wr.Freeze()
	assert(err == nil, "freeze failed: %s", err)

	assert(wr.Add(1) == ErrFrozen, "add after freeze didn't fail")
	assert(wr.Freeze() == ErrFrozen, "double freeze didn't fail")
}

func TestDBCorrupt(t *testing.T) {
	assert := newAsserter(t)

	fn := fmt.Sprintf("%s/corrupt%d.db", os.TempDir(), rand.Int())
	wr, err := NewXorDBWriter[uint8](fn)
	assert(err == nil, "can't create db %s: %s", fn, err)

	defer os.Remove(fn)

	err = wr.AddKeys(seqKeys(1000))
	assert(err == nil, "can't add keys: %s", err)

	err = wr.Freeze()
	assert(err == nil, "freeze failed: %s", err)

	// flip a byte inside the filter table; the checksums must catch it
	fd, err := os.OpenFile(fn, os.O_RDWR, 0600)
	assert(err == nil, "can't re-open %s: %s", fn, err)

	st, err := fd.Stat()
	assert(err == nil, "can't stat %s: %s", fn, err)

	off := st.Size() - 40
	var b [1]byte
	_, err = fd.ReadAt(b[:], off)
	assert(err == nil, "can't read %s: %s", fn, err)
	b[0] ^= 0xff
	_, err = fd.WriteAt(b[:], off)
	assert(err == nil, "can't write %s: %s", fn, err)
	fd.Close()

	_, err = NewDBReader(fn, 10)
	assert(err != nil, "corrupted db opened without error")
}

func TestDBAbort(t *testing.T) {
	assert := newAsserter(t)

	fn := fmt.Sprintf("%s/abort%d.db", os.TempDir(), rand.Int())
	wr, err := NewBinaryFuseDBWriter[uint8](fn)
	assert(err == nil, "can't create db %s: %s", fn, err)

	err = wr.Add(42)
	assert(err == nil, "can't add key: %s", err)

	err = wr.Abort()
	assert(err == nil, "abort failed: %s", err)

	_, err = os.Stat(fn)
	assert(err != nil, "aborted db left %s behind", fn)
}
