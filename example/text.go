// text.go -- read keys from a variety of text files into a DBWriter
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
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/hexops/fastfilter"
	"github.com/opencoff/go-fasthash"
)

// AddTextFile adds keys from text file 'fn': the first whitespace (or
// 'delim') separated field of each line. Empty lines and lines starting
// with '#' are skipped. This function just opens the file and calls
// AddTextStream(). Returns number of keys added.
func AddTextFile(w *fastfilter.DBWriter, fn string, delim string) (uint64, error) {
	fd, err := os.Open(fn)
	if err != nil {
		return 0, err
	}

	if len(delim) == 0 {
		delim = " \t"
	}

	defer fd.Close()

	return AddTextStream(w, fd, delim)
}

// AddTextStream adds keys from text stream 'fd'; the key is the first
// field delimited by one of the characters in 'delim'. Empty lines are
// skipped. Returns number of keys added.
func AddTextStream(w *fastfilter.DBWriter, fd io.Reader, delim string) (uint64, error) {
	rd := bufio.NewReader(fd)
	sc := bufio.NewScanner(rd)
	ch := make(chan uint64, 10)

	// do I/O asynchronously
	go func(sc *bufio.Scanner, ch chan uint64) {
		for sc.Scan() {
			s := strings.TrimSpace(sc.Text())
			if len(s) == 0 || s[0] == '#' {
				continue
			}

			if i := strings.IndexAny(s, delim); i > 0 {
				s = s[:i]
			}

			ch <- hashKey(s)
		}

		close(ch)
	}(sc, ch)

	return addFromChan(w, ch)
}

// AddCSVFile adds keys from CSV file 'fn'. If 'kwfield' is non-negative,
// it indicates the field# of the key (default 0).
// If 'comma' is 0, the default CSV delimiter ',' is used.
// If 'comment' is not 0, then lines beginning with that rune are discarded.
// Returns number of keys added.
func AddCSVFile(w *fastfilter.DBWriter, fn string, comma, comment rune, kwfield int) (uint64, error) {
	fd, err := os.Open(fn)
	if err != nil {
		return 0, err
	}

	defer fd.Close()

	return AddCSVStream(w, fd, comma, comment, kwfield)
}

// AddCSVStream adds keys from CSV stream 'fd'; same field semantics as
// AddCSVFile. Returns number of keys added.
func AddCSVStream(w *fastfilter.DBWriter, fd io.Reader, comma, comment rune, kwfield int) (uint64, error) {
	if kwfield < 0 {
		kwfield = 0
	}

	ch := make(chan uint64, 10)
	cr := csv.NewReader(fd)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.Comment = comment
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	go func(cr *csv.Reader, ch chan uint64) {
		for {
			v, err := cr.Read()
			if err != nil {
				break
			}

			if len(v) <= kwfield {
				continue
			}

			ch <- hashKey(v[kwfield])
		}
		close(ch)
	}(cr, ch)

	return addFromChan(w, ch)
}

// read hashed keys from the chan and hand them to the writer.
func addFromChan(w *fastfilter.DBWriter, ch chan uint64) (uint64, error) {
	var n uint64
	for k := range ch {
		if err := w.Add(k); err != nil {
			return n, err
		}
		n++
	}

	return n, nil
}

// XXX We really ought to use a proper salt for this keyed-hash function.
// But then where we would store the salt!
func hashKey(key string) uint64 {
	return fasthash.Hash64(0, []byte(key))
}
