// unique.go - in-place deduplication of a key buffer
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

// Unique rearranges 'data' in place so that a prefix holds every distinct
// value exactly once, and returns that prefix. Element order is NOT
// preserved. Auxiliary space is O(1); expected time is O(n).
//
// The pass classifies elements by their "home" address hash(v) % n: each
// distinct value claims its home slot, copies of an already homed value
// are overwritten with a sentinel, and the unresolved remainder shrinks
// into a block that is deduplicated recursively.
// (https://stackoverflow.com/a/1533667)
func Unique[T any](hash func(T) uint64, eq func(a, b T) bool, data []T) []T {
	if len(data) < 2 {
		return data
	}

	// the first element doubles as the duplicate marker; one copy of it
	// survives at data[0]
	sentinel := data[0]
	rest := data[1:]
	n := uint64(len(rest))

	for i := 0; i < len(rest); {
		v := rest[i]
		if eq(v, sentinel) {
			i++
			continue
		}
		h := int(hash(v) % n)
		if h == i {
			i++
			continue
		}
		w := rest[h]
		switch {
		case eq(v, w):
			// copy of the value already sitting at its home slot
			rest[i] = sentinel
			i++
		case eq(w, sentinel):
			rest[h] = v
			rest[i] = sentinel
			i++
		case int(hash(w)%n) != h:
			// the home slot holds a squatter; displace it here and
			// claim the slot. A squatter from a position not yet
			// reached is examined next at 'i'; one from a position we
			// already passed is not revisited.
			rest[h] = v
			rest[i] = w
			if h < i {
				i++
			}
		default:
			// home owned by a different value; left for the
			// recursive pass
			i++
		}
	}

	// compact values sitting at their home address into a prefix
	swapPos := 0
	for i := 0; i < len(rest); i++ {
		v := rest[i]
		if eq(v, sentinel) {
			continue
		}
		if int(hash(v)%n) == i {
			rest[i], rest[swapPos] = rest[swapPos], rest[i]
			swapPos++
		}
	}

	// push sentinel copies to the tail
	sentinelPos := len(rest)
	for i := swapPos; i < sentinelPos; {
		if eq(rest[i], sentinel) {
			sentinelPos--
			rest[i], rest[sentinelPos] = rest[sentinelPos], rest[i]
		} else {
			i++
		}
	}

	// rest[swapPos:sentinelPos] may still hold duplicates that never
	// reached their home slot; each level retires at least its own
	// sentinel, so this terminates.
	u := Unique(hash, eq, rest[swapPos:sentinelPos])

	return data[: 1+swapPos+len(u)]
}

// UniqueU64 dedups a slice of uint64 keys in place using the murmur64
// finalizer as the home hash; the returned prefix satisfies the
// uniqueness precondition of the xor and fuse constructors.
func UniqueU64(data []uint64) []uint64 {
	return Unique(murmur64, func(a, b uint64) bool { return a == b }, data)
}
