// find.go -- 'find' command implementation
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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/hexops/fastfilter"
	flag "github.com/opencoff/pflag"
)

type findCommand struct{}

func init() {
	m := findCommand{}
	registerCommand("find", &m)
}

func (m *findCommand) run(args []string, opt *Option) (err error) {
	var db *fastfilter.DBReader

	fs := flag.NewFlagSet("find", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() {
		fmt.Printf(`Usage: find [options] DB [WORDS...]

where  'DB' is the name of the membership db. Words are read from the
command line or, if none are given, one per line from stdin. Each word
prints as present ("probably") or absent ("no").

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	err = fs.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("find: %w", err)
	}

	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("find: insufficient args")
	}

	fn := args[0]
	db, err = fastfilter.NewDBReader(fn, 1000)
	if err != nil {
		return fmt.Errorf("find: %w", err)
	}

	defer db.Close()

	query := func(s string) {
		if db.Contains(hashKey(s)) {
			fmt.Printf("%s: probably\n", s)
		} else {
			fmt.Printf("%s: no\n", s)
		}
	}

	if len(args) > 1 {
		for _, s := range args[1:] {
			query(s)
		}
		return nil
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if len(s) > 0 {
			query(s)
		}
	}
	return sc.Err()
}
