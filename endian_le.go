// endian_le.go -- endian detection for little-endian archs.
// We build this file into all arch's that are LE. We list them in the
// build constraints below
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

//go:build 386 || amd64 || arm || arm64 || ppc64le || mipsle || mips64le || riscv64 || loong64 || wasm
// +build 386 amd64 arm arm64 ppc64le mipsle mips64le riscv64 loong64 wasm

package fastfilter

const hostLittleEndian = true
