// make.go -- 'make' command implementation
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
	"strings"
	"time"

	"github.com/hexops/fastfilter"
	flag "github.com/opencoff/pflag"
)

type makeCommand struct{}

func init() {
	m := makeCommand{}
	registerCommand("make", &m)
}

func newWriter(fn, algo string) (*fastfilter.DBWriter, error) {
	switch algo {
	case "xor8":
		return fastfilter.NewXorDBWriter[uint8](fn)
	case "xor16":
		return fastfilter.NewXorDBWriter[uint16](fn)
	case "xor32":
		return fastfilter.NewXorDBWriter[uint32](fn)
	case "fuse8":
		return fastfilter.NewFuseDBWriter[uint8](fn)
	case "bfuse8":
		return fastfilter.NewBinaryFuseDBWriter[uint8](fn)
	case "bfuse16":
		return fastfilter.NewBinaryFuseDBWriter[uint16](fn)
	case "bfuse32":
		return fastfilter.NewBinaryFuseDBWriter[uint32](fn)
	}

	return nil, fmt.Errorf("unknown filter algorithm '%s'", algo)
}

func (m *makeCommand) run(args []string, opt *Option) (err error) {
	var db *fastfilter.DBWriter

	defer func(e *error) {
		if *e != nil && db != nil {
			db.Abort()
		}
	}(&err)

	fs := flag.NewFlagSet("make", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() {
		fmt.Printf(`Usage: make [options] DB ALGO [INPUT...]

where:
   DB	    is the name of the output membership database file
   ALGO	    should be one of 'xor8', 'xor16', 'xor32', 'fuse8',
	    'bfuse8', 'bfuse16', 'bfuse32'
   INPUT    is one or more optional input files

The input file(s) must have a name suffix of one of the following:
   .txt	    one key per line (first whitespace delimited field)
   .csv	    A comma-separated file; first field is the key

options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	err = fs.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("make: %w", err)
	}

	args = fs.Args()
	if len(args) < 2 {
		return fmt.Errorf("make: insufficient args")
	}

	fn := args[0]
	algo := args[1]
	args = args[2:]

	db, err = newWriter(fn, algo)
	if err != nil {
		return fmt.Errorf("make: can't create %s DB: %w", algo, err)
	}

	var tot uint64
	if len(args) > 0 {
		var n uint64
		for _, f := range args {
			switch {
			case strings.HasSuffix(f, ".txt"):
				n, err = AddTextFile(db, f, " \t")

			case strings.HasSuffix(f, ".csv"):
				n, err = AddCSVFile(db, f, ',', '#', 0)

			default:
				return fmt.Errorf("make: don't know how to add %s", f)
			}

			if err != nil {
				return fmt.Errorf("make: can't add %s: %s", f, err)
			}

			opt.Printf("+ %s: %d keys\n", f, n)
			tot += n
		}
	} else {
		var n uint64

		n, err = AddTextStream(db, os.Stdin, " \t")
		if err != nil {
			return fmt.Errorf("make: can't add text from stdin: %w", err)
		}

		opt.Printf("+ <STDIN>: %d keys\n", n)
		tot += n
	}

	start := time.Now()
	err = db.Freeze()
	if err != nil {
		return fmt.Errorf("make: can't write db %s: %s", fn, err)
	}
	delta := time.Now().Sub(start)
	speed := (1.0e6 * float64(tot)) / float64(delta.Microseconds())
	opt.Printf("%d keys, %s (%3.1f keys/sec)\n", tot, delta.Truncate(time.Millisecond).String(), speed)

	return nil
}
