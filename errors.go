// errors.go - public errors exposed by fastfilter
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
	"errors"
	"fmt"
)

func errShortWrite(who string, n int) error {
	return fmt.Errorf("%s: incomplete write; wrote %d bytes", who, n)
}

var (
	// ErrKeysNotUnique is returned when filter construction exhausts its
	// seed retries. For a correctly sized input set the probability of
	// that happening is astronomically small; it effectively means the
	// key set contains duplicates (xor/fuse require unique keys).
	ErrKeysNotUnique = errors.New("too many construction iterations; keys are likely not unique")

	// ErrFrozen is returned when attempting to add new keys to an already
	// frozen DB. It is also returned when trying to freeze a DB that's
	// already frozen.
	ErrFrozen = errors.New("DB already frozen")

	// Header too small for unmarshalling
	ErrTooSmall = errors.New("not enough data to unmarshal")
)
