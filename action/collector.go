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

// Package action implements the symbol collector, action-line validator and
// action compiler that sit between a tracepoint's raw action-line text and
// its compiled collection.List form (spec.md §4.B, §4.C, §4.D).
package action

import (
	"github.com/ezhilan/qtrace/collection"
	"github.com/ezhilan/qtrace/logger"
	"github.com/ezhilan/qtrace/registers"
	"github.com/ezhilan/qtrace/symtab"
)

// Collector routes resolved symbols into a collection.List by location
// class (spec.md §4.B). Verbose, when set, makes every skip or rejection
// also emit a notice through the logger — the supplemented "verbose
// collection notices" feature.
type Collector struct {
	Verbose bool
}

func (c *Collector) notice(format string, values ...interface{}) {
	if c.Verbose {
		logger.Logf("action", format, values...)
	}
}

// Collect routes one resolved symbol into list according to its location
// class. It never returns an error: unsupported classes are skipped and
// optionally noticed, matching spec.md §4.B's table exactly.
func (c *Collector) Collect(list *collection.List, sym *symtab.Symbol) {
	switch sym.Class {
	case symtab.LocConst, symtab.LocConstBytes, symtab.LocTypedef, symtab.LocLabel, symtab.LocBlock:
		c.notice("%s is constant or has no storage, not collecting", sym.Name)

	case symtab.LocStatic:
		if err := list.AddMemrange(0, sym.Address, sym.Size); err != nil {
			c.notice("could not collect %s: %v", sym.Name, err)
		}

	case symtab.LocRegister, symtab.LocRegParm:
		if err := list.AddRegister(sym.Register); err != nil {
			c.notice("could not collect %s: %v", sym.Name, err)
		}

	case symtab.LocRegParmAddr:
		if err := list.AddMemrange(sym.Register, 0, sym.Size); err != nil {
			c.notice("could not collect %s: %v", sym.Name, err)
		}

	case symtab.LocLocal, symtab.LocLocalArg:
		if err := list.AddMemrange(registers.FP, sym.Offset, sym.Size); err != nil {
			c.notice("could not collect %s: %v", sym.Name, err)
		}

	case symtab.LocBaseReg, symtab.LocBaseRegArg:
		if err := list.AddMemrange(sym.BaseRegister, sym.Offset, sym.Size); err != nil {
			c.notice("could not collect %s: %v", sym.Name, err)
		}

	case symtab.LocArg, symtab.LocRefArg:
		c.notice("%s is a pass-by-reference argument, not collecting", sym.Name)

	case symtab.LocUnresolved, symtab.LocOptimizedOut:
		c.notice("%s has been optimized out, not collecting", sym.Name)

	default:
		c.notice("%s has an unrecognized location, not collecting", sym.Name)
	}
}

// CollectMode selects which classes CollectBlock routes from a scope.
type CollectMode int

const (
	// ModeLocals is "$locals": { local, static, register, basereg }.
	ModeLocals CollectMode = iota
	// ModeArgs is "$args": { arg, local-arg, ref-arg, regparm, regparm-addr, basereg-arg }.
	ModeArgs
)

func inLocalsMode(class symtab.Location) bool {
	switch class {
	case symtab.LocLocal, symtab.LocStatic, symtab.LocRegister, symtab.LocBaseReg:
		return true
	}
	return false
}

func inArgsMode(class symtab.Location) bool {
	switch class {
	case symtab.LocArg, symtab.LocLocalArg, symtab.LocRefArg, symtab.LocRegParm, symtab.LocRegParmAddr, symtab.LocBaseRegArg:
		return true
	}
	return false
}

// CollectBlock walks outward from block through Super, collecting every
// symbol matching mode's class set, stopping after (and including) the
// first function block — the "$locals"/"$args" semantics of spec.md §4.B.
func (c *Collector) CollectBlock(list *collection.List, block *symtab.Block, mode CollectMode) {
	for b := block; b != nil; b = b.Super {
		for _, sym := range b.Symbols {
			match := false
			switch mode {
			case ModeLocals:
				match = inLocalsMode(sym.Class)
			case ModeArgs:
				match = inArgsMode(sym.Class)
			}
			if match {
				c.Collect(list, sym)
			}
		}
		if b.Function {
			break
		}
	}
}
