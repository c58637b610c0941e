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
	"strings"

	"github.com/ezhilan/qtrace/collection"
	"github.com/ezhilan/qtrace/exprs"
	"github.com/ezhilan/qtrace/qerrors"
	"github.com/ezhilan/qtrace/symtab"
	"github.com/ezhilan/qtrace/tracepoint"
)

// compileState is the two-state machine spec.md §4.D drives: TDP while
// collecting the tracepoint-hit list, STEP while inside while-stepping.
type compileState int

const (
	stateTDP compileState = iota
	stateStep
)

// Compiled is the output of Compile: the stringified tracepoint-hit list,
// the resolved step count, and the stringified stepping list.
type Compiled struct {
	TDPString      string
	StepCount      int
	SteppingString string
}

// Compile runs the action compiler (spec.md §4.D) over t's action-line
// chain. numRegs bounds the "$reg" wildcard and the register bitmap
// capacity; block is the tracepoint's lexical scope, used for $args/$locals
// and bare variable/register collect items.
func Compile(c *Collector, t *tracepoint.Tracepoint, block *symtab.Block, numRegs int) (Compiled, error) {
	tdpList := collection.New(numRegs)
	stepList := collection.New(numRegs)

	state := stateTDP
	current := func() *collection.List {
		if state == stateStep {
			return stepList
		}
		return tdpList
	}

	for al := t.Actions(); al != nil; al = al.Next {
		line := strings.TrimLeft(al.Line, " \t")

		switch {
		case hasPrefixFold(line, "while-stepping"):
			state = stateStep
			continue

		case hasPrefixFold(line, "end"):
			if state == stateStep {
				state = stateTDP
				continue
			}
			// a bare "end" while already in TDP state closes the action
			// list early; stop iterating.
			goto finished

		case hasPrefixFold(line, "collect"):
			items := splitCollectItems(strings.TrimSpace(line[len("collect"):]))
			for _, item := range items {
				if err := compileItem(c, current(), strings.TrimSpace(item), block, numRegs); err != nil {
					return Compiled{}, err
				}
			}

		default:
			return Compiled{}, qerrors.Errorf(qerrors.Internal, "unrecognized action line %q reached the compiler", line)
		}
	}

finished:
	tdpList.SortMerge()
	stepList.SortMerge()

	return Compiled{
		TDPString:      tdpList.Stringify(),
		StepCount:      t.StepCount,
		SteppingString: stepList.Stringify(),
	}, nil
}

// compileItem handles one item inside a "collect" line, per spec.md §4.D's
// per-item table.
func compileItem(c *Collector, list *collection.List, item string, block *symtab.Block, numRegs int) error {
	if item == "" {
		return nil
	}

	if item[0] == '$' {
		switch {
		case hasPrefixFold(item, "$reg"):
			for r := 0; r < numRegs; r++ {
				if err := list.AddRegister(r); err != nil {
					return err
				}
			}
			return nil
		case hasPrefixFold(item, "$arg"):
			c.CollectBlock(list, block, ModeArgs)
			return nil
		case hasPrefixFold(item, "$loc"):
			c.CollectBlock(list, block, ModeLocals)
			return nil
		case strings.HasPrefix(item, "$("):
			kind, offset, size, err := parseMemrangeLiteral(item, block)
			if err != nil {
				return qerrors.Errorf(qerrors.UserInput, "bad memrange literal %q: %v", item, err)
			}
			return list.AddMemrange(int(kind), offset, size)
		}
	}

	tree, err := exprs.Parse(item, block)
	if err != nil {
		return err
	}
	switch tree.Op {
	case exprs.OpRegister:
		return list.AddRegister(tree.Register)
	case exprs.OpVarValue:
		c.Collect(list, tree.Symbol)
		return nil
	default:
		return qerrors.Errorf(qerrors.UserInput, "expression %q is not collectible", item)
	}
}
