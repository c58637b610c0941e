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

package qerrors_test

import (
	"fmt"
	"testing"

	"github.com/ezhilan/qtrace/qerrors"
)

const testError = "test error: %s"
const testErrorB = "test error B: %s"

func TestDuplicateErrors(t *testing.T) {
	e := qerrors.Errorf(qerrors.Internal, testError, "foo")
	if e.Error() != "test error: foo" {
		t.Errorf("unexpected message: %s", e.Error())
	}

	f := qerrors.Errorf(qerrors.Internal, testError, e)
	if f.Error() != "test error: foo" {
		t.Errorf("duplicate adjacent parts were not collapsed: %s", f.Error())
	}
}

func TestIsAndHas(t *testing.T) {
	e := qerrors.Errorf(qerrors.UserInput, testError, "foo")
	if !qerrors.Is(e, testError) {
		t.Errorf("expected Is to match")
	}
	if qerrors.Has(e, testErrorB) {
		t.Errorf("did not expect Has to match an absent pattern")
	}

	f := qerrors.Errorf(qerrors.Wire, testErrorB, e)
	if qerrors.Is(f, testError) {
		t.Errorf("did not expect Is to match the wrapped pattern")
	}
	if !qerrors.Is(f, testErrorB) {
		t.Errorf("expected Is to match the outer pattern")
	}
	if !qerrors.Has(f, testError) {
		t.Errorf("expected Has to find the wrapped pattern")
	}
	if !qerrors.Has(f, testErrorB) {
		t.Errorf("expected Has to find the outer pattern")
	}

	if !qerrors.IsAny(e) || !qerrors.IsAny(f) {
		t.Errorf("expected both errors to be qerrors errors")
	}
}

func TestPlainErrors(t *testing.T) {
	e := fmt.Errorf("plain test error")
	if qerrors.IsAny(e) {
		t.Errorf("a plain error should never be IsAny")
	}
	if qerrors.Has(e, testError) {
		t.Errorf("a plain error should never Has anything")
	}
}

func TestKind(t *testing.T) {
	e := qerrors.Errorf(qerrors.Capacity, "actions too complex")
	k, ok := qerrors.KindOf(e)
	if !ok || k != qerrors.Capacity {
		t.Errorf("expected Capacity kind, got %v (ok=%v)", k, ok)
	}
	if !qerrors.IsKind(e, qerrors.Capacity) {
		t.Errorf("expected IsKind(Capacity) to be true")
	}
	if qerrors.IsKind(e, qerrors.Wire) {
		t.Errorf("did not expect IsKind(Wire) to be true")
	}

	if _, ok := qerrors.KindOf(fmt.Errorf("plain")); ok {
		t.Errorf("plain errors should not have a Kind")
	}
}

func TestWrapping(t *testing.T) {
	a := 10
	e := qerrors.Errorf(qerrors.Internal, "error: value = %d", a)
	f := qerrors.Errorf(qerrors.Internal, "fatal: %v", e)

	if !qerrors.Has(f, "error: value = %d") {
		t.Errorf("expected Has to find the wrapped pattern")
	}
	if qerrors.Is(f, "error: value = %d") {
		t.Errorf("did not expect Is to match the wrapped pattern directly")
	}
	if f.Error() != "fatal: error: value = 10" {
		t.Errorf("unexpected message: %s", f.Error())
	}
}
