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

// Package exprs is the narrow expression-parser/evaluator collaborator
// interface the tracepoint core uses (spec.md §6: parse_expression). The
// real parser/evaluator — full C-like expression grammar, type checking,
// pretty-printing — is explicitly out of scope for the core (spec.md §1);
// this package only carries the tagged opcode shape the core's action
// validator and compiler switch on, plus a parser minimal enough to
// recognize the two forms spec.md §4.C/§4.D actually dispatch on: a bare
// register name, and a bare variable name resolved through a symtab.Block.
package exprs

import (
	"strconv"
	"strings"

	"github.com/ezhilan/qtrace/qerrors"
	"github.com/ezhilan/qtrace/registers"
	"github.com/ezhilan/qtrace/symtab"
)

// Op tags the shape of a parsed expression, mirroring the opcode tags
// spec.md §6 names: OP_VAR_VALUE, OP_REGISTER, OP_LONG. Only the first two
// are ever accepted by the action validator/compiler; OP_LONG exists so a
// bare numeric literal is parsed (and then explicitly rejected) rather than
// failing to parse at all.
type Op int

const (
	OpVarValue Op = iota
	OpRegister
	OpLong
)

// Tree is the parsed form of one expression. Only the field matching Op is
// meaningful.
type Tree struct {
	Op       Op
	Symbol   *symtab.Symbol // OpVarValue
	Register int            // OpRegister
	Long     int64          // OpLong
}

// registerNames maps a handful of canonical register aliases to register
// numbers, the way a real symbol/register table would. Generic "rN" tokens
// are also recognized, and every register token may carry a leading "$"
// ("$pc", "$r3").
var registerNames = map[string]int{
	"pc": 0,
	"sp": 1,
	"fp": registers.FP,
}

func registerNumber(token string) (int, bool) {
	lower := strings.TrimPrefix(strings.ToLower(token), "$")
	if n, ok := registerNames[lower]; ok {
		return n, true
	}
	if strings.HasPrefix(lower, "r") && len(lower) > 1 {
		if n, err := strconv.Atoi(lower[1:]); err == nil && n >= 0 {
			return n, true
		}
	}
	return 0, false
}

// Parse parses a single expression token in the given lexical block. block
// may be nil if the expression cannot possibly reference a variable (the
// caller should expect only OpRegister/OpLong in that case).
func Parse(text string, block *symtab.Block) (*Tree, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, qerrors.Errorf(qerrors.UserInput, "empty expression")
	}

	if r, ok := registerNumber(text); ok {
		return &Tree{Op: OpRegister, Register: r}, nil
	}

	if n, err := strconv.ParseInt(text, 0, 64); err == nil {
		return &Tree{Op: OpLong, Long: n}, nil
	}

	if block != nil {
		if sym, ok := block.Lookup(text); ok {
			return &Tree{Op: OpVarValue, Symbol: sym}, nil
		}
	}

	return nil, qerrors.Errorf(qerrors.UserInput, "No symbol %q in current context.", text)
}
