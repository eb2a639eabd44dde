// iterator.go - restartable key producer consumed by the constructors
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

// KeyIterator is a finite, restartable producer of uint64 keys with a
// length known ahead of time. Filter construction retries rescan the
// keys, so restartability is part of the contract, not an optimization:
// an implementation that does not rewind silently corrupts construction.
type KeyIterator interface {
	// Next returns the next key. Once the sequence is exhausted it
	// returns false and MUST rewind, so that the following call to
	// Next returns the first key again.
	Next() (uint64, bool)

	// Len returns the total number of keys produced per scan.
	Len() int
}

type sliceIterator struct {
	keys []uint64
	i    int
}

// Keys returns a KeyIterator over 'keys'. The slice is not copied; it
// must not be mutated while a filter is being populated from it.
func Keys(keys []uint64) KeyIterator {
	return &sliceIterator{keys: keys}
}

func (s *sliceIterator) Next() (uint64, bool) {
	if s.i >= len(s.keys) {
		s.i = 0
		return 0, false
	}
	k := s.keys[s.i]
	s.i++
	return k, true
}

func (s *sliceIterator) Len() int {
	return len(s.keys)
}
