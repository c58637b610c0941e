// This file is part of qtrace.
//
// qtrace is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// qtrace is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with qtrace.  If not, see <https://www.gnu.org/licenses/>.

// Package registers describes the target's register file from the core's
// point of view: which one is the frame pointer, and how many raw bytes each
// register occupies on the wire. The register count is not defined here; it
// comes from config.Config.NumRegisters. The
// core never interprets register contents itself (decoding is left to the
// tdump view, a Non-goal here); it only needs these facts to build and
// parse QTDP/R packets.
package registers

// FP is the base register number used for LOC_LOCAL/LOC_LOCAL_ARG symbols
// (§4.B): collecting a local variable means collecting bytes at an offset
// from the frame pointer. It must stay greater than zero: Memrange.Kind
// uses 0 to mean an absolute memory reference, and a register-relative
// memrange has to be distinguishable from that on the wire.
const FP = 16

// defaultRawSize is used for any register number not present in RawSizes.
const defaultRawSize = 4

// RawSizes overrides the raw wire size, in bytes, of specific registers.
// Registers not listed here use defaultRawSize.
var RawSizes = map[int]int{}

// RawSize returns the number of bytes register r occupies in an R... reply
// (§4.F): the decoder must consume exactly this many bytes per register
// before looking for the next "regno:value;" block.
func RawSize(r int) int {
	if n, ok := RawSizes[r]; ok {
		return n
	}
	return defaultRawSize
}
