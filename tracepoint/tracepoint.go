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

// Package tracepoint implements the registry and action model at the heart
// of the tracepoint core (spec.md §3, §4.E): an ordered collection of
// probes, each carrying a compiled action list describing what to capture
// when hit.
package tracepoint

// ActionLine is one immutable source line of a tracepoint's action list,
// plus its ordered successor — spec.md §3: "an immutable source string plus
// an ordered successor. Lines are interpreted, never rewritten."
type ActionLine struct {
	Line string
	Next *ActionLine
}

// Tracepoint is a passive probe at a target PC (spec.md §3).
type Tracepoint struct {
	// Number is 1-based, monotonically assigned, stable for the
	// tracepoint's lifetime.
	Number int

	// Address is the absolute code address where the probe fires.
	Address uint64

	// SourceFile, LineNumber, AddrString and CondString are optional
	// source-level origin retained for re-display and script emission.
	SourceFile string
	LineNumber int
	AddrString string
	CondString string

	// Language and InputRadix are captured at creation, used when later
	// re-parsing expressions in the tracepoint's context.
	Language   string
	InputRadix int

	Enabled bool

	// PassCount is the stop-after threshold; 0 means "no limit".
	PassCount uint64

	// StepCount is the number of instructions to single-step after a hit.
	// 0 means "no stepping actions". -1 means "while-stepping was given
	// with no explicit count" (spec.md §4.C).
	StepCount int

	// Actions is the head of this tracepoint's action-line chain.
	actions     *ActionLine
	actionsTail *ActionLine

	// next links tracepoints into the registry's insertion-ordered chain.
	next *Tracepoint
}

// Actions returns the head of the action-line chain. Callers should treat
// the chain as read-only.
func (t *Tracepoint) Actions() *ActionLine { return t.actions }

// AppendAction appends a new action line to the end of the chain.
func (t *Tracepoint) AppendAction(line string) {
	al := &ActionLine{Line: line}
	if t.actionsTail == nil {
		t.actions = al
	} else {
		t.actionsTail.Next = al
	}
	t.actionsTail = al
}

// ClearActions discards every action line and resets StepCount to 0. This
// is the "free action lines" half of §4.E's delete/re-enter semantics, and
// is also what the actions sub-prompt (§5) does to the prior list before
// it starts accepting new lines, and on abnormal exit from the sub-prompt.
func (t *Tracepoint) ClearActions() {
	t.actions = nil
	t.actionsTail = nil
	t.StepCount = 0
}

// Next returns the next tracepoint in the registry's insertion-ordered
// chain, or nil if t is the last one.
func (t *Tracepoint) Next() *Tracepoint { return t.next }
