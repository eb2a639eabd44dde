// bench.go -- 'bench' command implementation
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

package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/hexops/fastfilter"
	flag "github.com/opencoff/pflag"
)

type benchCommand struct{}

func init() {
	m := benchCommand{}
	registerCommand("bench", &m)
}

// the classical fuse filter only constructs above ~125k unique keys
const fuseMinKeys = 1000000

func (m *benchCommand) run(args []string, opt *Option) (err error) {
	var trials int64

	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Int64VarP(&trials, "num-trials", "n", 100000000, "Use `N` random lookups per measurement")
	fs.Usage = func() {
		fmt.Printf(`Usage: bench [options]

Builds every filter algorithm over a few key-set sizes and reports a
Markdown table of construction and lookup cost.

Options:
`)
		fs.PrintDefaults()
	}

	err = fs.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}

	if rest := fs.Args(); len(rest) > 0 {
		fs.Usage()
		return fmt.Errorf("bench: unknown argument %q", rest[0])
	}

	if trials <= 0 {
		return fmt.Errorf("bench: number of trials must be positive")
	}

	type algo struct {
		name  string
		build func(keys []uint64) (fastfilter.Filter, error)
	}

	algos := []algo{
		{"xor8", func(keys []uint64) (fastfilter.Filter, error) { return fastfilter.BuildXor[uint8](keys) }},
		{"xor16", func(keys []uint64) (fastfilter.Filter, error) { return fastfilter.BuildXor[uint16](keys) }},
		{"fuse8", func(keys []uint64) (fastfilter.Filter, error) { return fastfilter.BuildFuse[uint8](keys) }},
		{"binary-fuse8", func(keys []uint64) (fastfilter.Filter, error) { return fastfilter.BuildBinaryFuse[uint8](keys) }},
		{"binary-fuse16", func(keys []uint64) (fastfilter.Filter, error) { return fastfilter.BuildBinaryFuse[uint16](keys) }},
	}

	sizes := []int{10000, 100000, 1000000}

	fmt.Printf("| algorithm | keys | populate | ns/lookup | fpp %% | bits/entry | construction bytes | filter bytes |\n")
	fmt.Printf("|-----------|------|----------|-----------|-------|------------|--------------------|--------------|\n")

	for _, n := range sizes {
		keys := make([]uint64, n)
		for i := range keys {
			keys[i] = uint64(i)
		}

		for _, a := range algos {
			if a.name == "fuse8" && n < fuseMinKeys {
				continue
			}
			if err := benchOne(a.name, keys, trials, a.build); err != nil {
				return fmt.Errorf("bench: %s/%d: %w", a.name, n, err)
			}
		}
	}

	return nil
}

func benchOne(name string, keys []uint64, trials int64, build func([]uint64) (fastfilter.Filter, error)) error {
	var ms0, ms1 runtime.MemStats

	runtime.GC()
	runtime.ReadMemStats(&ms0)

	start := time.Now()
	flt, err := build(keys)
	if err != nil {
		return err
	}
	populate := time.Since(start)

	runtime.ReadMemStats(&ms1)
	consBytes := ms1.TotalAlloc - ms0.TotalAlloc

	// random lookups; the chance of hitting a construction key is
	// ~n*trials/2^64, far below the false-positive rates we measure
	q := uint64(0xdeadbeefbaadf00d)
	hits := int64(0)
	start = time.Now()
	for i := int64(0); i < trials; i++ {
		if flt.Contains(xorshift64(&q)) {
			hits++
		}
	}
	perLookup := float64(time.Since(start).Nanoseconds()) / float64(trials)

	n := len(keys)
	fpp := 100 * float64(hits) / float64(trials)
	bitsPerEntry := float64(flt.SizeInBytes()*8) / float64(n)

	fmt.Printf("| %s | %d | %s | %4.1f | %8.4f | %5.2f | %d | %d |\n",
		name, n, populate.Truncate(time.Microsecond), perLookup, fpp,
		bitsPerEntry, consBytes, flt.SizeInBytes())
	return nil
}

// xorshift64: cheap query-stream generator; quality doesn't matter
// beyond being spread over the 64-bit space
func xorshift64(s *uint64) uint64 {
	x := *s
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	*s = x
	return x
}
