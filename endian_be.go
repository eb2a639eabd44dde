// endian_be.go -- endian detection for big-endian archs.
// On these hosts the marshal path copies and byte-swaps fingerprint
// tables instead of aliasing them.
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

//go:build s390x || ppc64 || mips || mips64
// +build s390x ppc64 mips mips64

package fastfilter

const hostLittleEndian = false
