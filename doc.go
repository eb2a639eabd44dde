// doc.go - top level documentation
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

// Package fastfilter implements three approximate set-membership filters
// over uint64 keys:
//
//	1. Xor filter: https://arxiv.org/abs/1912.08258
//	2. Fuse filter (deprecated): https://arxiv.org/abs/1907.04749
//	3. Binary fuse filter: https://arxiv.org/abs/2201.01174
//
// A filter is built once from a set of keys and is immutable afterwards.
// Lookups answer "definitely not in the set" or "probably in the set";
// false negatives are impossible, and the false-positive probability is
// about 2^-w for a w-bit fingerprint type. A populated filter is freely
// shareable across goroutines.
//
// The key is a uint64 value - most commonly obtained by hashing a user
// specific object. The caller must ensure that they use a good hash
// function (eg siphash, xxhash) that produces a random distribution of
// the keys. The xor and fuse filters additionally require the keys to be
// unique; Unique() and UniqueU64() dedup a key slice in place, and the
// binary fuse filter tolerates duplicates on its own.
//
// fastfilter also exposes a convenient way to serialize a key set into
// an on-disk single-file membership database via 'DBWriter' and
// 'DBReader'. The serialized DB is memory mapped at query time; it is
// useful in situations where reads vastly outnumber rebuilds.
package fastfilter
