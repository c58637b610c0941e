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

// Package debugger wires the registry, action compiler, protocol engine and
// cursor together behind the command surface spec.md §4.H names: trace,
// actions, passcount, enable/disable/delete, tstart/tstop/tstatus, tfind,
// tdump, save-tracepoints, info tracepoints, info scope, plus the
// supplemented "tracepoints dot" diagnostic. It owns no goroutines; every
// command runs to completion on the calling thread (spec.md §5).
package debugger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ezhilan/qtrace/action"
	"github.com/ezhilan/qtrace/actionprompt"
	"github.com/ezhilan/qtrace/cursor"
	"github.com/ezhilan/qtrace/debugger/terminal"
	"github.com/ezhilan/qtrace/debugger/terminal/commandline"
	"github.com/ezhilan/qtrace/protocol"
	"github.com/ezhilan/qtrace/qerrors"
	"github.com/ezhilan/qtrace/registryviz"
	"github.com/ezhilan/qtrace/symtab"
	"github.com/ezhilan/qtrace/tracepoint"
)

// Debugger is the session-level collaborator holder: one registry, one
// symbol table, one protocol engine, one cursor, addressed through a
// command-line-shaped surface.
type Debugger struct {
	Registry  *tracepoint.Registry
	Symbols   symtab.Table
	Collector *action.Collector
	Engine    *protocol.Engine
	Cursor    *cursor.CursorState
	Term      terminal.Terminal

	InputRadix int
	NumRegs    int

	// ActionsInput is the file the "actions" sub-prompt acquires cbreak
	// mode on. A nil value (the default for a non-interactive session, e.g.
	// under test) disables cbreak-mode acquisition entirely.
	ActionsInput *os.File
}

// New returns a Debugger with an empty registry, wired so that the
// protocol engine's mid-command register-snapshot notifications and
// QTFrame:*-driven frame selections both flow through cursor.
func New(symbols symtab.Table, engine *protocol.Engine, term terminal.Terminal, inputRadix, numRegs int) *Debugger {
	d := &Debugger{
		Registry:   tracepoint.NewRegistry(),
		Symbols:    symbols,
		Collector:  &action.Collector{Verbose: true},
		Engine:     engine,
		Term:       term,
		InputRadix: inputRadix,
		NumRegs:    numRegs,
	}

	d.Cursor = cursor.New(cursor.Hooks{
		ResolveSAL: d.resolveSAL,
		PrettyPrint: func() {
			d.printCurrentFrame()
		},
	})

	d.Registry.OnDeleted(func(t *tracepoint.Tracepoint) {
		if d.Cursor.TracepointNumber() == int64(t.Number) {
			d.Cursor.Reset()
		}
	})

	if engine != nil {
		// the engine already runs steps 1-3 of the cursor transition
		// itself (via OnRegisterSnapshot -> Cursor.ObserveRegisterSnapshot
		// below), so OnInvalidate has nothing further to do.
		engine.OnInvalidate = func() {}
		engine.OnRegisterSnapshot = d.Cursor.ObserveRegisterSnapshot
		engine.Console = func(text string) {
			if d.Term != nil {
				d.Term.TermPrintLine(terminal.StyleFeedbackSecondary, text)
			}
		}
	}

	return d
}

func (d *Debugger) resolveSAL(pc uint64) (int, string, string, bool) {
	if d.Symbols == nil {
		return 0, "", "", false
	}
	return d.Symbols.PCToSAL(pc)
}

func (d *Debugger) printCurrentFrame() {
	if d.Term == nil || d.Cursor == nil {
		return
	}
	frame, _ := d.Cursor.ConvenienceVar("trace_frame")
	if frame.HasInt && frame.Int < 0 {
		d.Term.TermPrintLine(terminal.StyleFeedbackSecondary, "No trace frame selected.")
		return
	}
	fn, _ := d.Cursor.ConvenienceVar("trace_func")
	file, _ := d.Cursor.ConvenienceVar("trace_file")
	line, _ := d.Cursor.ConvenienceVar("trace_line")

	if fn.IsNull {
		d.Term.TermPrintLine(terminal.StyleFeedbackSecondary, fmt.Sprintf("Frame #%d, tracepoint %d", d.Cursor.TraceFrameNumber(), d.Cursor.TracepointNumber()))
		return
	}
	d.Term.TermPrintLine(terminal.StyleFeedbackSecondary, fmt.Sprintf("#%d  %s () at %s:%d", d.Cursor.TraceFrameNumber(), fn.Str, file.Str, line.Int))
}

// convenienceVarLookup adapts Cursor.ConvenienceVar to the shape
// tracepoint.Registry.Lookup needs.
func (d *Debugger) convenienceVarLookup(name string) (int64, bool, bool) {
	v, ok := d.Cursor.ConvenienceVar(name)
	if !ok {
		return 0, false, false
	}
	return v.Int, v.HasInt, true
}

func (d *Debugger) blockForPC(pc uint64) *symtab.Block {
	if d.Symbols == nil {
		return nil
	}
	return d.Symbols.BlockForPC(pc)
}

// Trace implements the "trace <locspec>" command: resolve locspec to the
// first matching SAL and register a new tracepoint there.
func (d *Debugger) Trace(locspec string) (*tracepoint.Tracepoint, error) {
	locspec = strings.TrimSpace(locspec)
	if locspec == "" {
		return nil, qerrors.Errorf(qerrors.UserInput, "trace requires a location")
	}
	if d.Symbols == nil {
		return nil, qerrors.Errorf(qerrors.UserInput, "no symbol table is loaded")
	}
	sals, err := d.Symbols.ResolveSource(locspec)
	if err != nil {
		return nil, err
	}
	if len(sals) == 0 {
		return nil, qerrors.Errorf(qerrors.UserInput, "no code at %q", locspec)
	}
	t := d.Registry.Create(sals[0], "c", d.InputRadix)
	t.AddrString = locspec
	return t, nil
}

// Actions implements the "actions [tpnum]" sub-prompt: the tracepoint's
// prior action list is cleared up front, new lines are read and validated
// one at a time until a bare "end" or an abnormal exit (error, interrupt),
// and an abnormal exit leaves the tracepoint with an empty action list
// (spec.md §5). An "end" that follows a "while-stepping" line closes only
// the stepping block: it is kept in the action list and reading goes on.
func (d *Debugger) Actions(spec string) error {
	t, err := d.Registry.Lookup(spec, d.convenienceVarLookup)
	if err != nil {
		return err
	}
	t.ClearActions()

	readLoop := func(interrupted <-chan os.Signal) error {
		stepping := false
		for {
			if interrupted != nil {
				select {
				case <-interrupted:
					return qerrors.Errorf(qerrors.UserInput, "actions entry interrupted")
				default:
				}
			}
			line, rerr := d.Term.ReadLine("> ")
			if rerr != nil {
				return rerr
			}
			result := action.ValidateLine(line, d.blockForPC(t.Address))
			switch result.Verdict {
			case action.End:
				if stepping {
					stepping = false
					t.AppendAction(strings.TrimLeft(line, " \t"))
					continue
				}
				return nil
			case action.Bad:
				d.Term.TermPrintLine(terminal.StyleError, "bad action line, ignored")
			case action.Stepping:
				stepping = true
				t.StepCount = result.StepCount
				t.AppendAction(strings.TrimLeft(line, " \t"))
			case action.Generic:
				t.AppendAction(strings.TrimLeft(line, " \t"))
			}
		}
	}

	if d.ActionsInput != nil {
		err = actionprompt.RunScoped(d.ActionsInput, readLoop)
	} else {
		err = readLoop(nil)
	}
	if err != nil {
		t.ClearActions()
		return err
	}
	return nil
}

// PassCount implements "passcount <N> [tpnum|all]"; an omitted target means
// the last tracepoint created, matching tracepoint.Registry.Lookup's empty
// spec convention.
func (d *Debugger) PassCount(args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return qerrors.Errorf(qerrors.UserInput, "passcount requires a count")
	}
	n, err := strconv.ParseUint(fields[0], 0, 64)
	if err != nil {
		return qerrors.Errorf(qerrors.UserInput, "bad passcount %q", fields[0])
	}

	target := ""
	if len(fields) > 1 {
		target = fields[1]
	}
	if target == "all" {
		d.Registry.SetPassCountAll(n)
		return nil
	}
	t, err := d.Registry.Lookup(target, d.convenienceVarLookup)
	if err != nil {
		return err
	}
	d.Registry.SetPassCount(t, n)
	return nil
}

// applyToTracepoints runs fn over every tracepoint named in args, or every
// tracepoint in the registry if args is empty — the "[nums...]" shared
// shape of enable/disable/delete (spec.md §4.H).
func (d *Debugger) applyToTracepoints(args string, fn func(*tracepoint.Tracepoint) error) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		for _, t := range d.Registry.All() {
			if err := fn(t); err != nil {
				return err
			}
		}
		return nil
	}
	for _, f := range fields {
		t, err := d.Registry.Lookup(f, d.convenienceVarLookup)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// EnableTracepoints implements "enable tracepoints [nums...]".
func (d *Debugger) EnableTracepoints(args string) error {
	return d.applyToTracepoints(args, func(t *tracepoint.Tracepoint) error {
		d.Registry.Enable(t)
		return nil
	})
}

// DisableTracepoints implements "disable tracepoints [nums...]".
func (d *Debugger) DisableTracepoints(args string) error {
	return d.applyToTracepoints(args, func(t *tracepoint.Tracepoint) error {
		d.Registry.Disable(t)
		return nil
	})
}

// DeleteTracepoints implements "delete tracepoints [nums...]".
func (d *Debugger) DeleteTracepoints(args string) error {
	return d.applyToTracepoints(args, func(t *tracepoint.Tracepoint) error {
		return d.Registry.Delete(t)
	})
}

// TStart implements "tstart": the full start-collection wire sequence,
// followed by a cursor reset to (-1, -1) since no trace frame is yet
// selected.
func (d *Debugger) TStart() error {
	if d.Engine == nil {
		return qerrors.Errorf(qerrors.UserInput, "no target is connected")
	}
	if err := d.Engine.StartCollection(d.Registry, d.Collector, d.blockForPC, d.NumRegs); err != nil {
		return err
	}
	d.Cursor.Reset()
	return nil
}

// TStop implements "tstop".
func (d *Debugger) TStop() error {
	if d.Engine == nil {
		return qerrors.Errorf(qerrors.UserInput, "no target is connected")
	}
	if err := d.Engine.StopCollection(); err != nil {
		return err
	}
	d.Cursor.Reset()
	return nil
}

// TStatus implements "tstatus".
func (d *Debugger) TStatus() error {
	if d.Engine == nil {
		return qerrors.Errorf(qerrors.UserInput, "no target is connected")
	}
	return d.Engine.Status()
}

// TFind implements "tfind [n|-|pc [addr]|tracepoint [num]|line [spec]|
// range a,b|outside a,b|start|end|none]": build the matching QTFrame:*
// request, send it, and drive a cursor transition from the decoded reply.
func (d *Debugger) TFind(args string) error {
	if d.Engine == nil {
		return qerrors.Errorf(qerrors.UserInput, "no target is connected")
	}

	request, requestedMinusOne, err := d.buildFrameRequest(args)
	if err != nil {
		return err
	}

	result, err := d.Engine.SelectFrame(request, requestedMinusOne)
	if err != nil {
		return err
	}

	pc := cursor.NoPC
	if result.TracepointNumber > 0 {
		if t, lerr := d.Registry.Lookup(strconv.FormatInt(result.TracepointNumber, 10), nil); lerr == nil {
			pc = t.Address
		}
	}
	d.Cursor.Select(result.FrameNumber, result.TracepointNumber, pc)
	return nil
}

// buildFrameRequest returns the QTFrame:* wire request for one tfind
// subform, plus whether that request explicitly targets frame -1 ("end
// trace debugging", spec.md §4.F) — the only case in which a bare F-1
// reply is a normal result rather than a protocol error.
func (d *Debugger) buildFrameRequest(args string) (string, bool, error) {
	tokens := commandline.TokeniseInput(args)
	first, ok := tokens.Get()

	switch {
	case !ok || first == "":
		n := d.Cursor.TraceFrameNumber() + 1
		return protocol.FrameRequestNumber(n), n == -1, nil

	case first == "-":
		n := d.Cursor.TraceFrameNumber() - 1
		return protocol.FrameRequestNumber(n), n == -1, nil

	case first == "start":
		return protocol.FrameRequestNumber(0), false, nil

	case first == "none", first == "end":
		return protocol.FrameRequestNumber(-1), true, nil

	case first == "pc":
		tok, ok := tokens.Get()
		if !ok {
			return "", false, qerrors.Errorf(qerrors.UserInput, "tfind pc requires an address")
		}
		pc, err := strconv.ParseUint(tok, 0, 64)
		if err != nil {
			return "", false, qerrors.Errorf(qerrors.UserInput, "bad address %q", tok)
		}
		return protocol.FrameRequestPC(pc), false, nil

	case first == "tracepoint":
		tok, ok := tokens.Get()
		if !ok {
			return "", false, qerrors.Errorf(qerrors.UserInput, "tfind tracepoint requires a tracepoint number")
		}
		t, err := d.Registry.Lookup(tok, d.convenienceVarLookup)
		if err != nil {
			return "", false, err
		}
		return protocol.FrameRequestTracepoint(t.Number), false, nil

	case first == "line":
		spec := tokens.Remainder()
		if d.Symbols == nil {
			return "", false, qerrors.Errorf(qerrors.UserInput, "no symbol table is loaded")
		}
		sals, err := d.Symbols.ResolveSource(spec)
		if err != nil {
			return "", false, err
		}
		if len(sals) == 0 {
			return "", false, qerrors.Errorf(qerrors.UserInput, "no code at %q", spec)
		}
		return protocol.FrameRequestPC(sals[0].PC), false, nil

	case first == "range":
		start, end, err := parseRangeBounds(tokens.Remainder())
		if err != nil {
			return "", false, err
		}
		return protocol.FrameRequestRange(start, end), false, nil

	case first == "outside":
		start, end, err := parseRangeBounds(tokens.Remainder())
		if err != nil {
			return "", false, err
		}
		return protocol.FrameRequestOutside(start, end), false, nil

	default:
		n, err := strconv.ParseInt(first, 0, 64)
		if err != nil {
			return "", false, qerrors.Errorf(qerrors.UserInput, "bad tfind argument %q", first)
		}
		return protocol.FrameRequestNumber(n), n == -1, nil
	}
}

// parseRangeBounds parses "a,b" into [a, b). A bare "a" with no second
// bound is treated as [a, a+1) (spec.md §9 second Open Question).
func parseRangeBounds(s string) (uint64, uint64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 1 && len(parts) != 2 {
		return 0, 0, qerrors.Errorf(qerrors.UserInput, "expected one or two comma-separated bounds, got %q", s)
	}
	start, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 0, 64)
	if err != nil {
		return 0, 0, qerrors.Errorf(qerrors.UserInput, "bad range start %q", parts[0])
	}
	if len(parts) == 1 {
		return start, start + 1, nil
	}
	end, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 0, 64)
	if err != nil {
		return 0, 0, qerrors.Errorf(qerrors.UserInput, "bad range end %q", parts[1])
	}
	return start, end, nil
}

// Tdump implements "tdump": a report of the currently selected trace
// frame's last observed register snapshot (the supplemented frame-report
// feature SPEC_FULL.md describes; decoding register bytes into typed
// values is left to a pretty-printer, out of scope here).
func (d *Debugger) Tdump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Data collected at tracepoint %d, frame %d:\n", d.Cursor.TracepointNumber(), d.Cursor.TraceFrameNumber())

	regs := d.Cursor.LastRegisters()
	if len(regs) == 0 {
		b.WriteString("  no data collected\n")
		return b.String()
	}

	nums := make([]int, 0, len(regs))
	for r := range regs {
		nums = append(nums, r)
	}
	sort.Ints(nums)
	for _, r := range nums {
		fmt.Fprintf(&b, "  r%d = 0x%x\n", r, regs[r])
	}
	return b.String()
}

// SaveTracepoints implements "save-tracepoints <file>".
func (d *Debugger) SaveTracepoints(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return qerrors.Errorf(qerrors.UserInput, "save-tracepoints requires a file name")
	}
	lines := d.Registry.Script()
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return qerrors.Errorf(qerrors.UserInput, "save-tracepoints: %v", err)
	}
	return nil
}

// InfoTracepoints implements "info tracepoints [n]".
func (d *Debugger) InfoTracepoints(spec string) (string, error) {
	var list []*tracepoint.Tracepoint
	if strings.TrimSpace(spec) == "" {
		list = d.Registry.All()
	} else {
		t, err := d.Registry.Lookup(spec, d.convenienceVarLookup)
		if err != nil {
			return "", err
		}
		list = []*tracepoint.Tracepoint{t}
	}
	if len(list) == 0 {
		return "No tracepoints defined.\n", nil
	}

	var b strings.Builder
	for _, t := range list {
		state := "enabled"
		if !t.Enabled {
			state = "disabled"
		}
		loc := t.AddrString
		if loc == "" {
			loc = strconv.FormatUint(t.Address, 16)
		}
		fmt.Fprintf(&b, "%-4d %-8s 0x%016x in %-20s pass %d\n", t.Number, state, t.Address, loc, t.PassCount)
	}
	return b.String(), nil
}

// InfoScope implements "info scope <locspec>": every symbol in scope at
// locspec, walking outward to (and including) the enclosing function block.
func (d *Debugger) InfoScope(locspec string) (string, error) {
	if d.Symbols == nil {
		return "", qerrors.Errorf(qerrors.UserInput, "no symbol table is loaded")
	}
	sals, err := d.Symbols.ResolveSource(locspec)
	if err != nil {
		return "", err
	}
	if len(sals) == 0 {
		return "", qerrors.Errorf(qerrors.UserInput, "no code at %q", locspec)
	}
	block := d.Symbols.BlockForPC(sals[0].PC)
	if block == nil {
		return "", qerrors.Errorf(qerrors.Scope, "no scope information available for %q", locspec)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scope for %s:\n", locspec)
	for bk := block; bk != nil; bk = bk.Super {
		for _, sym := range bk.Symbols {
			fmt.Fprintf(&b, "  %s is a %s\n", sym.Name, sym.Class)
		}
		if bk.Function {
			break
		}
	}
	return b.String(), nil
}

// TracepointsDot implements the supplemented "tracepoints dot" diagnostic:
// a Graphviz dot dump of the registry chain.
func (d *Debugger) TracepointsDot(w io.Writer) error {
	return registryviz.Dot(w, d.Registry)
}

// Collect, WhileStepping and End are the top-level forms of the
// "collect"/"while-stepping"/"end" pseudo-commands; outside the "actions"
// sub-prompt they unconditionally fail (spec.md §9): these keywords only
// mean something inside a tracepoint's action-line context.
func (d *Debugger) Collect(string) error       { return errOutsideActions("collect") }
func (d *Debugger) WhileStepping(string) error { return errOutsideActions("while-stepping") }
func (d *Debugger) End() error                 { return errOutsideActions("end") }

func errOutsideActions(keyword string) error {
	return qerrors.Errorf(qerrors.UserInput, "%s is only valid inside the actions sub-prompt", keyword)
}
