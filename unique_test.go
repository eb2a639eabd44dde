// unique_test.go -- test suite for the in-place deduplicator
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
	"testing"

	"github.com/opencoff/go-fasthash"
)

func checkUnique(t *testing.T, input []uint64) {
	assert := newAsserter(t)

	want := make(map[uint64]bool)
	for _, v := range input {
		want[v] = true
	}

	buf := make([]uint64, len(input))
	copy(buf, input)

	out := UniqueU64(buf)
	assert(len(out) == len(want), "prefix len: exp %d, saw %d", len(want), len(out))

	seen := make(map[uint64]bool)
	for i, v := range out {
		assert(want[v], "unexpected value %d at [%d]", v, i)
		assert(!seen[v], "value %d repeated in prefix", v)
		seen[v] = true
	}

	// idempotence: dedup of the dedup'd prefix is a no-op
	out2 := UniqueU64(out)
	assert(len(out2) == len(out), "not idempotent: %d -> %d", len(out), len(out2))
}

func TestUniqueSimple(t *testing.T) {
	checkUnique(t, []uint64{1, 2, 2, 3, 3, 4, 2, 1, 4, 1, 2, 3, 4, 4, 3, 2, 1})
}

func TestUniqueEdges(t *testing.T) {
	checkUnique(t, []uint64{})
	checkUnique(t, []uint64{42})
	checkUnique(t, []uint64{7, 7})
	checkUnique(t, []uint64{7, 7, 7, 7, 7, 7, 7, 7})
	checkUnique(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8})
	checkUnique(t, []uint64{0, 0, 1, 0, 2})
}

func TestUniqueRandom(t *testing.T) {
	s := uint64(0x5eed)
	for trial := 0; trial < 50; trial++ {
		n := int(splitmix64(&s)%2000) + 1
		mod := splitmix64(&s)%64 + 1
		input := make([]uint64, n)
		for i := range input {
			// small modulus forces heavy duplication
			input[i] = splitmix64(&s) % mod
		}
		checkUnique(t, input)
	}
}

func TestUniqueLarge(t *testing.T) {
	s := uint64(0xa11ce)
	input := make([]uint64, 200000)
	for i := range input {
		input[i] = splitmix64(&s) % 50000
	}
	checkUnique(t, input)
}

func TestUniqueGeneric(t *testing.T) {
	assert := newAsserter(t)

	words := make([]string, 0, 3*len(keyw))
	for i := 0; i < 3; i++ {
		words = append(words, keyw...)
	}

	out := Unique(
		func(s string) uint64 { return fasthash.Hash64(0xdeadbeefbaadf00d, []byte(s)) },
		func(a, b string) bool { return a == b },
		words)

	assert(len(out) == len(keyw), "string dedup: exp %d, saw %d", len(keyw), len(out))

	seen := make(map[string]bool)
	for _, w := range out {
		assert(!seen[w], "word %q repeated", w)
		seen[w] = true
	}
}
