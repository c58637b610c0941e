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

package debugger

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ezhilan/qtrace/debugger/terminal"
	"github.com/ezhilan/qtrace/protocol"
	"github.com/ezhilan/qtrace/symtab"
)

// scriptedTerminal is a Terminal test double: ReadLine serves a fixed
// queue of lines, TermPrintLine records everything it is given.
type scriptedTerminal struct {
	lines  []string
	output []string
}

func (s *scriptedTerminal) ReadLine(prompt string) (string, error) {
	if len(s.lines) == 0 {
		return "end", nil
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedTerminal) TermPrintLine(style terminal.Style, text string) {
	s.output = append(s.output, text)
}

func (s *scriptedTerminal) Initialise() error { return nil }
func (s *scriptedTerminal) CleanUp()          {}

func newTestTable() *symtab.MemTable {
	tbl := symtab.NewMemTable()
	block := &symtab.Block{
		Function: true,
		Symbols: []*symtab.Symbol{
			{Name: "counter", Class: symtab.LocStatic, Address: 0x5000, Size: 4},
		},
	}
	tbl.Define("main", &symtab.Symtab{Dirname: "/src", Filename: "main.c"}, 10, 0x4010c0, block)
	return tbl
}

func newTestDebugger() (*Debugger, *scriptedTerminal) {
	term := &scriptedTerminal{}
	d := New(newTestTable(), nil, term, 10, 8)
	return d, term
}

func TestTraceCreatesTracepoint(t *testing.T) {
	d, _ := newTestDebugger()

	tp, err := d.Trace("main")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if tp.Number != 1 || tp.Address != 0x4010c0 {
		t.Fatalf("unexpected tracepoint: %+v", tp)
	}
}

func TestTraceRejectsEmptyLocspec(t *testing.T) {
	d, _ := newTestDebugger()
	if _, err := d.Trace("  "); err == nil {
		t.Fatalf("expected an error for an empty locspec")
	}
}

func TestActionsAcceptsValidLinesUntilEnd(t *testing.T) {
	d, term := newTestDebugger()
	tp, err := d.Trace("main")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}

	term.lines = []string{"collect $regs", "while-stepping 4", "collect counter", "end", "end"}
	if err := d.Actions("1"); err != nil {
		t.Fatalf("Actions: %v", err)
	}

	var got []string
	for al := tp.Actions(); al != nil; al = al.Next {
		got = append(got, al.Line)
	}
	want := []string{"collect $regs", "while-stepping 4", "collect counter", "end"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected action lines: %v", got)
	}
	if tp.StepCount != 4 {
		t.Fatalf("expected StepCount 4, got %d", tp.StepCount)
	}
}

func TestActionsReportsBadLineAndContinues(t *testing.T) {
	d, term := newTestDebugger()
	if _, err := d.Trace("main"); err != nil {
		t.Fatalf("Trace: %v", err)
	}

	term.lines = []string{"", "collect $regs", "end"}
	if err := d.Actions("1"); err != nil {
		t.Fatalf("Actions: %v", err)
	}

	found := false
	for _, line := range term.output {
		if strings.Contains(line, "bad action line") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a bad-action-line notice, got %v", term.output)
	}
}

func TestPassCountTargetsAndAll(t *testing.T) {
	d, _ := newTestDebugger()
	t1, _ := d.Trace("main")
	t2, _ := d.Trace("0x4010c0")

	if err := d.PassCount("5 1"); err != nil {
		t.Fatalf("PassCount: %v", err)
	}
	if t1.PassCount != 5 {
		t.Fatalf("expected t1.PassCount == 5, got %d", t1.PassCount)
	}

	if err := d.PassCount("9 all"); err != nil {
		t.Fatalf("PassCount all: %v", err)
	}
	if t1.PassCount != 9 || t2.PassCount != 9 {
		t.Fatalf("expected both tracepoints at 9, got %d and %d", t1.PassCount, t2.PassCount)
	}
}

func TestEnableDisableDeleteWithoutNumsActsOnAll(t *testing.T) {
	d, _ := newTestDebugger()
	d.Trace("main")
	d.Trace("0x4010c0")

	if err := d.DisableTracepoints(""); err != nil {
		t.Fatalf("DisableTracepoints: %v", err)
	}
	for _, tp := range d.Registry.All() {
		if tp.Enabled {
			t.Fatalf("expected every tracepoint disabled, got %+v", tp)
		}
	}

	if err := d.DeleteTracepoints(""); err != nil {
		t.Fatalf("DeleteTracepoints: %v", err)
	}
	if len(d.Registry.All()) != 0 {
		t.Fatalf("expected an empty registry after deleting all")
	}
}

func TestTStartSendsQTDPSequenceAndResetsCursor(t *testing.T) {
	d, _ := newTestDebugger()
	d.Trace("main")

	ch := protocol.NewMemChannel("OK", "OK", "OK")
	d.Engine = &protocol.Engine{Channel: ch, PacketBufferSize: 2048}
	d.Engine.OnRegisterSnapshot = d.Cursor.ObserveRegisterSnapshot

	if err := d.TStart(); err != nil {
		t.Fatalf("TStart: %v", err)
	}
	if len(ch.Sent) != 3 || ch.Sent[0] != "QTinit" || ch.Sent[2] != "QTStart" {
		t.Fatalf("unexpected send sequence: %v", ch.Sent)
	}
	if d.Cursor.TraceFrameNumber() != -1 {
		t.Fatalf("expected cursor reset to -1, got %d", d.Cursor.TraceFrameNumber())
	}
}

func TestTFindNumberSelectsFrame(t *testing.T) {
	d, _ := newTestDebugger()
	d.Trace("main")

	ch := protocol.NewMemChannel("F0T1")
	d.Engine = &protocol.Engine{Channel: ch}

	if err := d.TFind("0"); err != nil {
		t.Fatalf("TFind: %v", err)
	}
	if d.Cursor.TraceFrameNumber() != 0 || d.Cursor.TracepointNumber() != 1 {
		t.Fatalf("unexpected cursor state: frame=%d tp=%d", d.Cursor.TraceFrameNumber(), d.Cursor.TracepointNumber())
	}
	if ch.Sent[0] != "QTFrame:0" {
		t.Fatalf("unexpected request: %q", ch.Sent[0])
	}
}

func TestTFindLineResolvesThroughSymbols(t *testing.T) {
	d, _ := newTestDebugger()

	ch := protocol.NewMemChannel("F0T0")
	d.Engine = &protocol.Engine{Channel: ch}

	if err := d.TFind("line main"); err != nil {
		t.Fatalf("TFind: %v", err)
	}
	if ch.Sent[0] != "QTFrame:pc:4010c0" {
		t.Fatalf("unexpected request: %q", ch.Sent[0])
	}
}

func TestTFindRejectsUnrequestedFrameMinusOne(t *testing.T) {
	d, _ := newTestDebugger()
	d.Trace("main")

	ch := protocol.NewMemChannel("F-1")
	d.Engine = &protocol.Engine{Channel: ch}

	if err := d.TFind("0"); err == nil {
		t.Fatalf("an F-1 reply to tfind 0 should be an error, not a silent reset")
	}
}

func TestTFindAcceptsRequestedFrameMinusOne(t *testing.T) {
	d, _ := newTestDebugger()
	d.Trace("main")

	ch := protocol.NewMemChannel("F-1")
	d.Engine = &protocol.Engine{Channel: ch}

	if err := d.TFind("none"); err != nil {
		t.Fatalf("TFind(none): %v", err)
	}
	if d.Cursor.TraceFrameNumber() != -1 {
		t.Fatalf("TraceFrameNumber = %d, want -1", d.Cursor.TraceFrameNumber())
	}
}

func TestTFindRangeBuildsInclusiveEndRequest(t *testing.T) {
	d, _ := newTestDebugger()
	ch := protocol.NewMemChannel("OK")
	d.Engine = &protocol.Engine{Channel: ch}

	if err := d.TFind("range 10,20"); err != nil {
		t.Fatalf("TFind: %v", err)
	}
	if ch.Sent[0] != "QTFrame:range:a:13" {
		t.Fatalf("unexpected request: %q", ch.Sent[0])
	}
}

func TestSaveTracepointsWritesReExecutableScript(t *testing.T) {
	d, _ := newTestDebugger()
	tp, _ := d.Trace("main")
	tp.AppendAction("collect $regs")
	tp.AppendAction("end")

	path := filepath.Join(t.TempDir(), "script.txt")
	if err := d.SaveTracepoints(path); err != nil {
		t.Fatalf("SaveTracepoints: %v", err)
	}
}

func TestInfoTracepointsListsAll(t *testing.T) {
	d, _ := newTestDebugger()
	d.Trace("main")

	text, err := d.InfoTracepoints("")
	if err != nil {
		t.Fatalf("InfoTracepoints: %v", err)
	}
	if !strings.Contains(text, "enabled") {
		t.Fatalf("expected the listing to show tracepoint state, got %q", text)
	}
}

func TestInfoScopeListsSymbolsUpToFunctionBoundary(t *testing.T) {
	d, _ := newTestDebugger()

	text, err := d.InfoScope("main")
	if err != nil {
		t.Fatalf("InfoScope: %v", err)
	}
	if !strings.Contains(text, "counter is a static") {
		t.Fatalf("expected counter to be listed, got %q", text)
	}
}

func TestTopLevelCollectWhileSteppingEndAlwaysFail(t *testing.T) {
	d, _ := newTestDebugger()
	if err := d.Collect("$regs"); err == nil {
		t.Fatalf("expected a top-level collect to fail")
	}
	if err := d.WhileStepping("4"); err == nil {
		t.Fatalf("expected a top-level while-stepping to fail")
	}
	if err := d.End(); err == nil {
		t.Fatalf("expected a top-level end to fail")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	d, _ := newTestDebugger()
	if err := d.Dispatch("bogus"); err == nil {
		t.Fatalf("expected an error for an unknown command")
	}
}

func TestDispatchTraceAndInfoTracepoints(t *testing.T) {
	d, term := newTestDebugger()
	if err := d.Dispatch("trace main"); err != nil {
		t.Fatalf("Dispatch trace: %v", err)
	}
	if err := d.Dispatch("info tracepoints"); err != nil {
		t.Fatalf("Dispatch info tracepoints: %v", err)
	}
	if len(term.output) == 0 {
		t.Fatalf("expected some terminal output")
	}
}

func TestDispatchEnableAcceptsTracepointsKeyword(t *testing.T) {
	d, _ := newTestDebugger()
	tp, _ := d.Trace("main")
	d.Registry.Disable(tp)

	if err := d.Dispatch("enable tracepoints 1"); err != nil {
		t.Fatalf("Dispatch enable: %v", err)
	}
	if !tp.Enabled {
		t.Fatalf("expected tracepoint 1 to be enabled")
	}
}
