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

package tracepoint

import (
	"strconv"
	"strings"

	"github.com/ezhilan/qtrace/qerrors"
	"github.com/ezhilan/qtrace/symtab"
)

// Registry is the ordered collection of tracepoints (spec.md §4.E):
// numbering, enable/disable/delete, passcount assignment, lookup by number
// or convenience variable.
//
// Grounded on the teacher's breakpoints/traps/watches "dbg *Debugger"
// collaborator-holding container shape, generalised from a flat slice to an
// explicit insertion-ordered chain per spec.md §3's Tracepoint.next field.
type Registry struct {
	head, tail *Tracepoint
	count      int

	// nextNumber is the next number to assign. It is never decremented, so
	// numbers are never reused within a session (spec.md §4.E).
	nextNumber int

	// onDeleted is notified whenever a tracepoint is removed, the "external
	// 'tracepoint deleted' hook" spec.md §4.E names. May be nil.
	onDeleted func(*Tracepoint)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{nextNumber: 1}
}

// OnDeleted registers a hook called whenever a tracepoint is deleted.
func (r *Registry) OnDeleted(fn func(*Tracepoint)) {
	r.onDeleted = fn
}

// Count returns tracepoint_count: the number of tracepoints ever created.
// It is monotonic non-decreasing and always >= the highest Number in the
// registry (spec.md §8).
func (r *Registry) Count() int { return r.nextNumber - 1 }

// joinSourcePath ensures exactly one separator between dirname and
// filename.
//
// XXX spec.md §9: the original joins dirname+"/"+filename by advancing past
// the terminator rather than by length. We preserve only the documented
// contract — exactly one separator between the two components — without
// guessing at byte-for-byte original behaviour beyond that.
func joinSourcePath(dirname, filename string) string {
	dirname = strings.TrimRight(dirname, "/")
	filename = strings.TrimLeft(filename, "/")
	if dirname == "" {
		return filename
	}
	if filename == "" {
		return dirname
	}
	return dirname + "/" + filename
}

// Create allocates a new tracepoint from a resolved SAL, appends it to the
// chain (so listing order equals insertion order), and assigns the next
// number.
func (r *Registry) Create(sal symtab.SAL, language string, inputRadix int) *Tracepoint {
	t := &Tracepoint{
		Number:     r.nextNumber,
		Address:    sal.PC,
		LineNumber: sal.Line,
		Language:   language,
		InputRadix: inputRadix,
		Enabled:    true,
	}
	if sal.Symtab != nil {
		t.SourceFile = joinSourcePath(sal.Symtab.Dirname, sal.Symtab.Filename)
	}
	r.nextNumber++

	if r.tail == nil {
		r.head = t
		r.tail = t
	} else {
		r.tail.next = t
		r.tail = t
	}
	r.count++

	return t
}

// Delete unlinks t from the chain, frees its action lines, conditional
// string, addr string and source string, and notifies the deletion hook.
func (r *Registry) Delete(t *Tracepoint) error {
	var prev *Tracepoint
	cur := r.head
	for cur != nil {
		if cur == t {
			if prev == nil {
				r.head = cur.next
			} else {
				prev.next = cur.next
			}
			if r.tail == cur {
				r.tail = prev
			}
			r.count--

			cur.ClearActions()
			cur.CondString = ""
			cur.AddrString = ""
			cur.SourceFile = ""
			cur.next = nil

			if r.onDeleted != nil {
				r.onDeleted(cur)
			}
			return nil
		}
		prev = cur
		cur = cur.next
	}
	return qerrors.Errorf(qerrors.UserInput, "tracepoint #%d is not defined", t.Number)
}

// Enable sets t.Enabled to true. Pure flag mutation: no wire traffic (push
// happens at the next QTStart).
func (r *Registry) Enable(t *Tracepoint) { t.Enabled = true }

// Disable sets t.Enabled to false.
func (r *Registry) Disable(t *Tracepoint) { t.Enabled = false }

// SetPassCount sets t.PassCount.
func (r *Registry) SetPassCount(t *Tracepoint, n uint64) { t.PassCount = n }

// SetPassCountAll sets PassCount on every tracepoint in the registry — the
// "all" target spec.md §4.E names.
func (r *Registry) SetPassCountAll(n uint64) {
	for t := r.head; t != nil; t = t.next {
		t.PassCount = n
	}
}

// ConvenienceVarLookup resolves a "$name" convenience variable to an
// integer tracepoint number. It is the narrow slice of the expression
// evaluator collaborator (spec.md §6: convenience_var) that Lookup needs.
type ConvenienceVarLookup func(name string) (value int64, isInt bool, ok bool)

// Lookup parses spec as either a decimal number, a "$name" convenience
// variable (resolved through lookupVar, which must report an integer-typed
// value), or empty (meaning "last created"). Returns a tracepoint, or a
// UserInput error.
func (r *Registry) Lookup(spec string, lookupVar ConvenienceVarLookup) (*Tracepoint, error) {
	spec = strings.TrimSpace(spec)

	if spec == "" {
		if r.tail == nil {
			return nil, qerrors.Errorf(qerrors.UserInput, "no tracepoints have been defined")
		}
		return r.tail, nil
	}

	if strings.HasPrefix(spec, "$") {
		if lookupVar == nil {
			return nil, qerrors.Errorf(qerrors.UserInput, "no convenience variables are available")
		}
		v, isInt, ok := lookupVar(spec[1:])
		if !ok {
			return nil, qerrors.Errorf(qerrors.UserInput, "no such convenience variable %s", spec)
		}
		if !isInt {
			return nil, qerrors.Errorf(qerrors.UserInput, "convenience variable %s is not an integer", spec)
		}
		return r.byNumber(int(v))
	}

	n, err := strconv.Atoi(spec)
	if err != nil {
		return nil, qerrors.Errorf(qerrors.UserInput, "bad tracepoint number %q", spec)
	}
	return r.byNumber(n)
}

func (r *Registry) byNumber(n int) (*Tracepoint, error) {
	for t := r.head; t != nil; t = t.next {
		if t.Number == n {
			return t, nil
		}
	}
	return nil, qerrors.Errorf(qerrors.UserInput, "tracepoint #%d is not defined", n)
}

// All returns every tracepoint in insertion order.
func (r *Registry) All() []*Tracepoint {
	all := make([]*Tracepoint, 0, r.count)
	for t := r.head; t != nil; t = t.next {
		all = append(all, t)
	}
	return all
}

// Head returns the first tracepoint in chain order, or nil if the registry
// is empty.
func (r *Registry) Head() *Tracepoint { return r.head }

// Script emits one re-executable block per tracepoint, in chain order: a
// "trace" line, then "condition", "disable", "passcount" and
// "actions" ... "end" lines where they apply — the supplemented save-tracepoints helper
// SPEC_FULL.md describes. This is pure read-only formatting; it mutates
// nothing.
func (r *Registry) Script() []string {
	var lines []string
	for t := r.head; t != nil; t = t.next {
		loc := t.AddrString
		if loc == "" {
			loc = strconv.FormatUint(t.Address, 16)
		}
		lines = append(lines, "trace "+loc)
		if t.CondString != "" {
			lines = append(lines, "condition "+strconv.Itoa(t.Number)+" "+t.CondString)
		}
		if !t.Enabled {
			lines = append(lines, "disable "+strconv.Itoa(t.Number))
		}
		if t.PassCount > 0 {
			lines = append(lines, "passcount "+strconv.FormatUint(t.PassCount, 10)+" "+strconv.Itoa(t.Number))
		}
		if t.actions != nil {
			lines = append(lines, "actions "+strconv.Itoa(t.Number))
			for al := t.actions; al != nil; al = al.Next {
				lines = append(lines, al.Line)
			}
			lines = append(lines, "end")
		}
	}
	return lines
}
