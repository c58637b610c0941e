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

// Package collection implements the compiled form of a tracepoint action
// list: a register bitmap plus a sorted, merged list of memory ranges (§4.A
// of the tracepoint core). It is pure data plus the sort/merge/stringify
// operations the action compiler (package action) drives; it never reaches
// into a symbol table or an expression tree itself.
package collection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ezhilan/qtrace/qerrors"
)

// MaxRegisterVirtualSize bounds how large a gap between two adjacent
// same-kind memranges may be before SortMerge collapses them into one. It
// mirrors MAX_REGISTER_VIRTUAL_SIZE in the original protocol, which exists
// so that two halves of a struct captured as separate ranges end up as a
// single wire descriptor.
const MaxRegisterVirtualSize = 8

// Memrange is (kind, start, end) where kind == 0 denotes an absolute memory
// range and kind > 0 denotes an offset from base register number kind.
type Memrange struct {
	Kind  int
	Start int64
	End   int64 // exclusive
}

func (m Memrange) Len() int64 { return m.End - m.Start }

// List is the compiled collection for one tracepoint action-list target
// (either the tracepoint-hit list or the while-stepping list). The register
// bitmap has 8*len(regsMask) bits of capacity; the default capacity (64
// registers) matches the historical 8-byte mask.
type List struct {
	regsMask []byte
	ranges   []Memrange
}

// New returns an empty List with room for numRegisters register bits,
// rounded up to a whole byte.
func New(numRegisters int) *List {
	if numRegisters <= 0 {
		numRegisters = 64
	}
	nbytes := (numRegisters + 7) / 8
	return &List{regsMask: make([]byte, nbytes)}
}

// Clear zeroes the bitmap and truncates the range list, without
// reallocating either backing array.
func (l *List) Clear() {
	for i := range l.regsMask {
		l.regsMask[i] = 0
	}
	l.ranges = l.ranges[:0]
}

// capacity returns the number of register bits this list can represent.
func (l *List) capacity() int {
	return 8 * len(l.regsMask)
}

// AddRegister sets bit r of the register bitmap. It fails with an Internal
// error if r is outside the bitmap's capacity.
func (l *List) AddRegister(r int) error {
	if r < 0 || r >= l.capacity() {
		return qerrors.Errorf(qerrors.Internal, "register number %d too large for tracepoint", r)
	}
	l.regsMask[r/8] |= 1 << uint(r%8)
	return nil
}

// HasRegister reports whether bit r of the register bitmap is set.
func (l *List) HasRegister(r int) bool {
	if r < 0 || r >= l.capacity() {
		return false
	}
	return l.regsMask[r/8]&(1<<uint(r%8)) != 0
}

// AddMemrange appends (kind, base, base+len) to the range list. If kind > 0
// the base register must itself be collected, so AddMemrange also calls
// AddRegister(kind) — a memrange offset from an uncollected register is
// meaningless to the stub.
func (l *List) AddMemrange(kind int, base, length int64) error {
	if length <= 0 {
		return qerrors.Errorf(qerrors.UserInput, "memrange size must be positive, got %d", length)
	}

	l.ranges = append(l.ranges, Memrange{Kind: kind, Start: base, End: base + length})

	if kind > 0 {
		if err := l.AddRegister(kind); err != nil {
			return err
		}
	}
	return nil
}

// Ranges returns the current range list. Callers must not mutate the
// returned slice.
func (l *List) Ranges() []Memrange { return l.ranges }

// SortMerge stably sorts the range list by (kind, start) and then merges any
// two adjacent records of equal kind whose gap is no larger than
// MaxRegisterVirtualSize. Not reentrant: callers must not call SortMerge and
// AddMemrange concurrently on the same list.
func (l *List) SortMerge() {
	sort.SliceStable(l.ranges, func(i, j int) bool {
		a, b := l.ranges[i], l.ranges[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Start < b.Start
	})

	if len(l.ranges) == 0 {
		return
	}

	merged := l.ranges[:1]
	for _, b := range l.ranges[1:] {
		a := &merged[len(merged)-1]
		if a.Kind == b.Kind && b.Start-a.End <= MaxRegisterVirtualSize {
			if b.End > a.End {
				a.End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	l.ranges = merged
}

// Stringify produces the textual QTDP tail for this list. If the bitmap is
// all-zero and the range list is empty, it returns "". Otherwise, if the
// bitmap is nonzero, it emits "R" followed by the bitmap bytes in
// descending byte index (leading all-zero high bytes trimmed), each as two
// uppercase hex digits. Then, for each memrange, it emits
// "M<kind>,<start>,<len>" in unprefixed uppercase hex.
func (l *List) Stringify() string {
	s := strings.Builder{}

	top := len(l.regsMask) - 1
	for top > 0 && l.regsMask[top] == 0 {
		top--
	}
	if l.regsMask[top] != 0 {
		s.WriteString("R")
		for i := top; i >= 0; i-- {
			fmt.Fprintf(&s, "%02X", l.regsMask[i])
		}
	}

	for _, m := range l.ranges {
		fmt.Fprintf(&s, "M%X,%X,%X", m.Kind, uint64(m.Start), uint64(m.Len()))
	}

	return s.String()
}
