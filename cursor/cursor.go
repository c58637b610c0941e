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

// Package cursor implements the host-side trace-frame navigation state
// machine (spec.md §4.G): which trace frame is currently selected, its
// synchronization with the stub's F/T replies, and the invalidation of
// cached frame/register state on every transition.
package cursor

// Value is a convenience-variable value, explicitly tagged rather than
// relying on a host language's dynamic typing (spec.md §9).
type Value struct {
	IsNull bool
	Int    int64
	HasInt bool
	Str    string
}

// NullValue is the tagged null convenience-variable value.
var NullValue = Value{IsNull: true}

// IntValue wraps an integer as a convenience-variable value.
func IntValue(n int64) Value { return Value{Int: n, HasInt: true} }

// StringValue wraps a string as a convenience-variable value.
func StringValue(s string) Value { return Value{Str: s} }

// Hooks are the external effects a cursor transition drives. All fields are
// optional; a nil hook is simply skipped.
type Hooks struct {
	// InvalidateFrames flushes any cached frames held by the wider debugger
	// (step 1 of spec.md §4.G).
	InvalidateFrames func()

	// MarkRegistersChanged flags registers stale (step 2).
	MarkRegistersChanged func()

	// ReselectFrame re-selects the current execution frame so the
	// expression evaluator sees the trace frame, not the live one (step 3).
	ReselectFrame func()

	// ResolveSAL recomputes traceframe_sal/traceframe_fun from a PC (step
	// 5). pc == ^uint64(0) (cursor.NoPC) means "no frame": ResolveSAL will
	// not be called in that case.
	ResolveSAL func(pc uint64) (line int, fn string, file string, ok bool)

	// PrettyPrint optionally displays the newly selected frame (step 6).
	PrettyPrint func()
}

// NoPC marks "no PC" for ResolveSAL purposes; traceframe_number == -1
// implies no PC is available.
const NoPC = ^uint64(0)

// CursorState is the host-side (frame_number, tracepoint_number, pc) record
// plus the derived convenience variables.
type CursorState struct {
	hooks Hooks
	vars  map[string]Value

	traceFrameNumber int64
	tracepointNumber int64

	lastRegisters map[int][]byte
}

// New returns a cursor reset to (-1, -1), with every convenience variable
// at its "no trace frame" value.
func New(hooks Hooks) *CursorState {
	c := &CursorState{hooks: hooks, vars: make(map[string]Value)}
	c.Reset()
	return c
}

// TraceFrameNumber returns the currently selected trace frame number, or -1.
func (c *CursorState) TraceFrameNumber() int64 { return c.traceFrameNumber }

// TracepointNumber returns the tracepoint number that produced the
// currently selected trace frame, or -1/0 depending on what the stub last
// reported.
func (c *CursorState) TracepointNumber() int64 { return c.tracepointNumber }

// ConvenienceVar returns the current value of a convenience variable by
// name (without the leading "$"), implementing the convenience_var
// collaborator interface (spec.md §6).
func (c *CursorState) ConvenienceVar(name string) (Value, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Reset drives a full cursor transition to (-1, -1): the "stop collection"
// and "start collection" case of spec.md §4.F.
func (c *CursorState) Reset() {
	c.Select(-1, -1, NoPC)
}

// LastRegisters returns the most recently observed register snapshot,
// keyed by register number — the supplemented tdump-style frame report
// feature.
func (c *CursorState) LastRegisters() map[int][]byte {
	return c.lastRegisters
}

// ObserveRegisterSnapshot records a register snapshot delivered by the
// protocol engine's R... notification handling and runs steps 1-3 of the
// cursor transition (invalidate frames, mark registers changed, re-select
// the frame), before the terminal reply (and any subsequent Select call) is
// processed. It does not change the frame or tracepoint number or any
// convenience variable.
func (c *CursorState) ObserveRegisterSnapshot(snapshot map[int][]byte) {
	c.lastRegisters = snapshot
	if c.hooks.InvalidateFrames != nil {
		c.hooks.InvalidateFrames()
	}
	if c.hooks.MarkRegistersChanged != nil {
		c.hooks.MarkRegistersChanged()
	}
	if c.hooks.ReselectFrame != nil {
		c.hooks.ReselectFrame()
	}
}

// Select runs the full six-step cursor transition (spec.md §4.G) to select
// (traceFrameNumber, tracepointNumber) at pc. Steps 1-4 always run; step 5
// recomputes the SAL-derived variables only when pc != NoPC. Convenience
// variables are updated as a single logical batch: the new map replaces the
// old one in one assignment, so no caller ever observes a mix of old and
// new values (spec.md §5's "all-or-nothing" ordering guarantee).
func (c *CursorState) Select(traceFrameNumber, tracepointNumber int64, pc uint64) {
	if c.hooks.InvalidateFrames != nil {
		c.hooks.InvalidateFrames()
	}
	if c.hooks.MarkRegistersChanged != nil {
		c.hooks.MarkRegistersChanged()
	}
	if c.hooks.ReselectFrame != nil {
		c.hooks.ReselectFrame()
	}

	c.traceFrameNumber = traceFrameNumber
	c.tracepointNumber = tracepointNumber

	next := map[string]Value{
		"trace_frame": IntValue(traceFrameNumber),
		"tpnum":       IntValue(tracepointNumber),
		"tracepoint":  IntValue(tracepointNumber),
	}

	if pc == NoPC || traceFrameNumber == -1 {
		next["trace_line"] = IntValue(-1)
		next["trace_func"] = NullValue
		next["trace_file"] = NullValue
	} else if c.hooks.ResolveSAL != nil {
		line, fn, file, ok := c.hooks.ResolveSAL(pc)
		if ok {
			next["trace_line"] = IntValue(int64(line))
			next["trace_func"] = StringValue(fn)
			next["trace_file"] = StringValue(file)
		} else {
			next["trace_line"] = IntValue(-1)
			next["trace_func"] = NullValue
			next["trace_file"] = NullValue
		}
	} else {
		next["trace_line"] = IntValue(-1)
		next["trace_func"] = NullValue
		next["trace_file"] = NullValue
	}

	c.vars = next

	if c.hooks.PrettyPrint != nil {
		c.hooks.PrettyPrint()
	}
}
