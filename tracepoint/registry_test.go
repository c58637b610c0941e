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
	"testing"

	"github.com/ezhilan/qtrace/symtab"
)

func TestCreateAssignsIncreasingNumbers(t *testing.T) {
	r := NewRegistry()

	t1 := r.Create(symtab.SAL{PC: 0x1000}, "c", 10)
	t2 := r.Create(symtab.SAL{PC: 0x2000}, "c", 10)
	t3 := r.Create(symtab.SAL{PC: 0x3000}, "c", 10)

	if t1.Number != 1 || t2.Number != 2 || t3.Number != 3 {
		t.Fatalf("got numbers %d, %d, %d, want 1, 2, 3", t1.Number, t2.Number, t3.Number)
	}

	all := r.All()
	if len(all) != 3 || all[0] != t1 || all[1] != t2 || all[2] != t3 {
		t.Fatalf("All() did not preserve insertion order: %v", all)
	}

	if r.Count() < t3.Number {
		t.Fatalf("Count() = %d, want >= %d", r.Count(), t3.Number)
	}
}

func TestDeleteThenCreateNeverReusesNumber(t *testing.T) {
	r := NewRegistry()

	t1 := r.Create(symtab.SAL{PC: 0x1000}, "c", 10)
	t2 := r.Create(symtab.SAL{PC: 0x2000}, "c", 10)

	if err := r.Delete(t1); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	t3 := r.Create(symtab.SAL{PC: 0x3000}, "c", 10)
	if t3.Number != 3 {
		t.Fatalf("Number = %d, want 3 (never reuse #1)", t3.Number)
	}
	if t3.Actions() != nil {
		t.Fatalf("new tracepoint has a non-empty action list")
	}

	all := r.All()
	if len(all) != 2 || all[0] != t2 || all[1] != t3 {
		t.Fatalf("All() after delete = %v, want [t2 t3]", all)
	}

	if r.Count() < t3.Number {
		t.Fatalf("Count() = %d must stay >= highest number %d", r.Count(), t3.Number)
	}
}

func TestDeleteUnknownTracepointFails(t *testing.T) {
	r := NewRegistry()
	t1 := r.Create(symtab.SAL{PC: 0x1000}, "c", 10)
	r.Delete(t1)

	if err := r.Delete(t1); err == nil {
		t.Fatalf("Delete of an already-deleted tracepoint should fail")
	}
}

func TestDeleteNotifiesHook(t *testing.T) {
	r := NewRegistry()
	var notified *Tracepoint
	r.OnDeleted(func(tp *Tracepoint) { notified = tp })

	t1 := r.Create(symtab.SAL{PC: 0x1000}, "c", 10)
	t1.AppendAction("collect $pc")

	if err := r.Delete(t1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if notified != t1 {
		t.Fatalf("deletion hook was not called with the deleted tracepoint")
	}
	if t1.Actions() != nil {
		t.Fatalf("deleted tracepoint retained its action list")
	}
}

func TestEnableDisable(t *testing.T) {
	r := NewRegistry()
	t1 := r.Create(symtab.SAL{PC: 0x1000}, "c", 10)

	if !t1.Enabled {
		t.Fatalf("new tracepoint should start enabled")
	}
	r.Disable(t1)
	if t1.Enabled {
		t.Fatalf("Disable did not clear Enabled")
	}
	r.Enable(t1)
	if !t1.Enabled {
		t.Fatalf("Enable did not set Enabled")
	}
}

func TestSetPassCountAll(t *testing.T) {
	r := NewRegistry()
	t1 := r.Create(symtab.SAL{PC: 0x1000}, "c", 10)
	t2 := r.Create(symtab.SAL{PC: 0x2000}, "c", 10)

	r.SetPassCountAll(5)
	if t1.PassCount != 5 || t2.PassCount != 5 {
		t.Fatalf("SetPassCountAll did not reach every tracepoint")
	}

	r.SetPassCount(t1, 9)
	if t1.PassCount != 9 || t2.PassCount != 5 {
		t.Fatalf("SetPassCount should only affect its target")
	}
}

func TestLookupByNumber(t *testing.T) {
	r := NewRegistry()
	t1 := r.Create(symtab.SAL{PC: 0x1000}, "c", 10)
	r.Create(symtab.SAL{PC: 0x2000}, "c", 10)

	got, err := r.Lookup("1", nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != t1 {
		t.Fatalf("Lookup(\"1\") returned wrong tracepoint")
	}

	if _, err := r.Lookup("99", nil); err == nil {
		t.Fatalf("Lookup of an unknown number should fail")
	}
}

func TestLookupEmptyMeansLastCreated(t *testing.T) {
	r := NewRegistry()
	r.Create(symtab.SAL{PC: 0x1000}, "c", 10)
	t2 := r.Create(symtab.SAL{PC: 0x2000}, "c", 10)

	got, err := r.Lookup("", nil)
	if err != nil {
		t.Fatalf("Lookup(\"\"): %v", err)
	}
	if got != t2 {
		t.Fatalf("Lookup(\"\") did not return the most recently created tracepoint")
	}
}

func TestLookupEmptyOnEmptyRegistryFails(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Lookup("", nil); err == nil {
		t.Fatalf("Lookup(\"\") on an empty registry should fail")
	}
}

func TestLookupConvenienceVariable(t *testing.T) {
	r := NewRegistry()
	t1 := r.Create(symtab.SAL{PC: 0x1000}, "c", 10)

	lookupVar := func(name string) (int64, bool, bool) {
		if name == "tpnum" {
			return int64(t1.Number), true, true
		}
		return 0, false, false
	}

	got, err := r.Lookup("$tpnum", lookupVar)
	if err != nil {
		t.Fatalf("Lookup($tpnum): %v", err)
	}
	if got != t1 {
		t.Fatalf("Lookup($tpnum) returned wrong tracepoint")
	}

	if _, err := r.Lookup("$nope", lookupVar); err == nil {
		t.Fatalf("Lookup of an unknown convenience variable should fail")
	}
}

func TestCreateJoinsSourcePath(t *testing.T) {
	r := NewRegistry()
	st := &symtab.Symtab{Dirname: "/src/proj/", Filename: "/main.c"}

	tp := r.Create(symtab.SAL{Symtab: st, PC: 0x1000, Line: 42}, "c", 10)
	if tp.SourceFile != "/src/proj/main.c" {
		t.Fatalf("SourceFile = %q, want %q", tp.SourceFile, "/src/proj/main.c")
	}
}

func TestScriptEmitsReExecutableBlock(t *testing.T) {
	r := NewRegistry()
	tp := r.Create(symtab.SAL{PC: 0x4010c0}, "c", 10)
	tp.AddrString = "0x4010c0"
	tp.CondString = "x==1"
	tp.AppendAction("collect $pc")
	tp.AppendAction("collect $sp")
	r.SetPassCount(tp, 3)
	r.Disable(tp)

	script := r.Script()

	want := []string{
		"trace 0x4010c0",
		"condition 1 x==1",
		"disable 1",
		"passcount 3 1",
		"actions 1",
		"collect $pc",
		"collect $sp",
		"end",
	}
	if len(script) != len(want) {
		t.Fatalf("Script() = %v, want %v", script, want)
	}
	for i := range want {
		if script[i] != want[i] {
			t.Fatalf("Script()[%d] = %q, want %q", i, script[i], want[i])
		}
	}
}
