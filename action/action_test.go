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

package action

import (
	"testing"

	"github.com/ezhilan/qtrace/collection"
	"github.com/ezhilan/qtrace/registers"
	"github.com/ezhilan/qtrace/symtab"
	"github.com/ezhilan/qtrace/tracepoint"
)

func TestValidateLineCollectSimple(t *testing.T) {
	r := ValidateLine("collect $pc", nil)
	if r.Verdict != Generic {
		t.Fatalf("Verdict = %v, want Generic", r.Verdict)
	}
}

func TestValidateLineCollectWildcards(t *testing.T) {
	for _, line := range []string{"collect $regs", "collect $args", "collect $locals"} {
		r := ValidateLine(line, nil)
		if r.Verdict != Generic {
			t.Fatalf("ValidateLine(%q).Verdict = %v, want Generic", line, r.Verdict)
		}
	}
}

func TestValidateLineCollectMemrangeLiteral(t *testing.T) {
	r := ValidateLine("collect $(1, 4, 8)", nil)
	if r.Verdict != Generic {
		t.Fatalf("Verdict = %v, want Generic", r.Verdict)
	}

	r = ValidateLine("collect $(1, 4, 0)", nil)
	if r.Verdict != Bad {
		t.Fatalf("non-positive size should be Bad, got %v", r.Verdict)
	}

	r = ValidateLine("collect $(1, 4", nil)
	if r.Verdict != Bad {
		t.Fatalf("missing close-paren should be Bad, got %v", r.Verdict)
	}
}

func TestValidateLineCollectAbsoluteMemrangeLiteral(t *testing.T) {
	r := ValidateLine("collect $(4096, 8)", nil)
	if r.Verdict != Generic {
		t.Fatalf("two-field absolute memrange literal should be Generic, got %v", r.Verdict)
	}

	kind, offset, size, err := parseMemrangeLiteral("$(4096, 8)", nil)
	if err != nil {
		t.Fatalf("parseMemrangeLiteral: %v", err)
	}
	if kind != 0 || offset != 4096 || size != 8 {
		t.Fatalf("parseMemrangeLiteral(%q) = (%d,%d,%d), want (0,4096,8)", "$(4096, 8)", kind, offset, size)
	}
}

func TestValidateLineEmpty(t *testing.T) {
	if ValidateLine("", nil).Verdict != Bad {
		t.Fatalf("empty line should be Bad")
	}
	if ValidateLine("   ", nil).Verdict != Bad {
		t.Fatalf("whitespace-only line should be Bad")
	}
}

func TestValidateLineWhileStepping(t *testing.T) {
	r := ValidateLine("while-stepping 10", nil)
	if r.Verdict != Stepping || r.StepCount != 10 {
		t.Fatalf("got %+v, want Stepping/10", r)
	}

	r = ValidateLine("while-stepping", nil)
	if r.Verdict != Stepping || r.StepCount != -1 {
		t.Fatalf("got %+v, want Stepping/-1", r)
	}

	r = ValidateLine("while-stepping 0", nil)
	if r.Verdict != Bad {
		t.Fatalf("while-stepping 0 should be Bad, got %v", r.Verdict)
	}
}

func TestValidateLineEnd(t *testing.T) {
	if ValidateLine("end", nil).Verdict != End {
		t.Fatalf("\"end\" should be End")
	}
}

func TestValidateLineRejectsOptimizedOut(t *testing.T) {
	block := &symtab.Block{
		Function: true,
		Symbols: []*symtab.Symbol{
			{Name: "x", Class: symtab.LocOptimizedOut},
		},
	}
	r := ValidateLine("collect x", block)
	if r.Verdict != Bad {
		t.Fatalf("collecting an optimized-out symbol should be Bad, got %v", r.Verdict)
	}
}

func TestValidateLineRejectsConstant(t *testing.T) {
	block := &symtab.Block{
		Function: true,
		Symbols: []*symtab.Symbol{
			{Name: "k", Class: symtab.LocConst, ConstValue: 7},
		},
	}
	r := ValidateLine("collect k", block)
	if r.Verdict != Bad {
		t.Fatalf("collecting a compile-time constant should be Bad, got %v", r.Verdict)
	}
}

func TestValidateLineUnrecognized(t *testing.T) {
	if ValidateLine("bogus", nil).Verdict != Bad {
		t.Fatalf("unrecognized line should be Bad")
	}
}

func TestCompileSimpleRegisterCollect(t *testing.T) {
	tp := &tracepoint.Tracepoint{Number: 1, Address: 0x4010c0}
	tp.AppendAction("collect $pc")

	c := &Collector{}
	compiled, err := Compile(c, tp, nil, 64)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if compiled.TDPString == "" {
		t.Fatalf("expected a nonempty TDP string for a register collect")
	}
	if compiled.SteppingString != "" {
		t.Fatalf("stepping string should be empty without while-stepping")
	}
}

func TestCompileRoutesWhileSteppingIntoSeparateList(t *testing.T) {
	tp := &tracepoint.Tracepoint{Number: 1, Address: 0x4010c0, StepCount: 5}
	tp.AppendAction("collect $pc")
	tp.AppendAction("while-stepping 5")
	tp.AppendAction("collect $sp")
	tp.AppendAction("end")

	c := &Collector{}
	compiled, err := Compile(c, tp, nil, 64)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if compiled.TDPString == "" || compiled.SteppingString == "" {
		t.Fatalf("expected both lists populated: %+v", compiled)
	}
	if compiled.TDPString == compiled.SteppingString {
		t.Fatalf("pc (tracepoint list) and sp (stepping list) are different registers in different lists and should not produce identical strings")
	}
}

func TestCompileWildcardRegsCoversAllRegisters(t *testing.T) {
	tp := &tracepoint.Tracepoint{Number: 1, Address: 0x1000}
	tp.AppendAction("collect $regs")

	c := &Collector{}
	compiled, err := Compile(c, tp, nil, 8)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if want := "RFF"; compiled.TDPString != want {
		t.Fatalf("expected a mask with all 8 register bits set, got %q, want %q", compiled.TDPString, want)
	}
}

func TestCompileMemrangeLiteral(t *testing.T) {
	tp := &tracepoint.Tracepoint{Number: 1, Address: 0x1000}
	tp.AppendAction("collect $(0, 16, 8)")

	c := &Collector{}
	compiled, err := Compile(c, tp, nil, 64)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := "M0,10,8"
	if compiled.TDPString != want {
		t.Fatalf("TDPString = %q, want %q", compiled.TDPString, want)
	}
}

func TestCollectorRoutesStaticToMemrange(t *testing.T) {
	c := &Collector{}
	list := collection.New(64)
	sym := &symtab.Symbol{Name: "counter", Class: symtab.LocStatic, Address: 0x2000, Size: 4}

	c.Collect(list, sym)
	ranges := list.Ranges()
	if len(ranges) != 1 || ranges[0].Start != 0x2000 || ranges[0].Len() != 4 {
		t.Fatalf("static symbol did not produce the expected memrange: %+v", ranges)
	}
}

func TestCollectorRoutesLocalToFrameOffset(t *testing.T) {
	c := &Collector{}
	list := collection.New(64)
	sym := &symtab.Symbol{Name: "n", Class: symtab.LocLocal, Offset: -8, Size: 4}

	c.Collect(list, sym)
	ranges := list.Ranges()
	if len(ranges) != 1 || ranges[0].Kind != registers.FP || ranges[0].Start != -8 {
		t.Fatalf("local symbol did not produce an FP-relative memrange: %+v", ranges)
	}
	if !list.HasRegister(registers.FP) {
		t.Fatalf("collecting a local did not set the FP register bit")
	}
}

func TestCollectorSkipsArgWithNotice(t *testing.T) {
	c := &Collector{}
	list := collection.New(64)
	sym := &symtab.Symbol{Name: "ref", Class: symtab.LocRefArg}

	c.Collect(list, sym)
	if len(list.Ranges()) != 0 {
		t.Fatalf("ref-arg symbols must not be collected")
	}
}

func TestCollectBlockLocalsStopsAtFunctionBoundary(t *testing.T) {
	global := &symtab.Block{
		Symbols: []*symtab.Symbol{{Name: "globalVar", Class: symtab.LocStatic, Address: 0x200, Size: 4}},
	}
	outer := &symtab.Block{
		Function: true,
		Super:    global,
		Symbols:  []*symtab.Symbol{{Name: "outerVar", Class: symtab.LocStatic, Address: 0x100, Size: 4}},
	}
	inner := &symtab.Block{
		Super:    outer,
		Symbols:  []*symtab.Symbol{{Name: "innerVar", Class: symtab.LocLocal, Offset: -4, Size: 4}},
	}

	c := &Collector{}
	list := collection.New(64)
	c.CollectBlock(list, inner, ModeLocals)

	if len(list.Ranges()) != 2 {
		t.Fatalf("expected inner and function-block locals collected and the block beyond the function skipped, got %d ranges", len(list.Ranges()))
	}
}
