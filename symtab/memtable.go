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

package symtab

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ezhilan/qtrace/qerrors"
)

// entry associates a PC with the SAL and Block that should be reported for
// it.
type entry struct {
	name  string
	sal   SAL
	block *Block
}

// MemTable is a minimal in-memory Table implementation, sufficient to drive
// the tracepoint core end to end in tests without a real DWARF reader. It
// is not part of the core itself — spec.md §1 treats the symbol table as an
// external collaborator.
type MemTable struct {
	byName map[string]entry
	byPC   []entry // kept sorted by PC ascending
}

// NewMemTable returns an empty table.
func NewMemTable() *MemTable {
	return &MemTable{byName: make(map[string]entry)}
}

// Define registers a resolvable location spec name (a function name, for
// instance) at pc, with the given block in scope there.
func (m *MemTable) Define(name string, st *Symtab, line int, pc uint64, block *Block) {
	e := entry{name: name, sal: SAL{Symtab: st, Line: line, PC: pc}, block: block}
	m.byName[strings.ToLower(name)] = e

	i := sort.Search(len(m.byPC), func(i int) bool { return m.byPC[i].sal.PC >= pc })
	m.byPC = append(m.byPC, entry{})
	copy(m.byPC[i+1:], m.byPC[i:])
	m.byPC[i] = e
}

// ResolveSource implements Table. spec is either a name previously
// registered with Define, or a bare hex/decimal address matching a
// previously defined PC exactly.
func (m *MemTable) ResolveSource(spec string) ([]SAL, error) {
	spec = strings.TrimSpace(spec)

	if e, ok := m.byName[strings.ToLower(spec)]; ok {
		return []SAL{e.sal}, nil
	}

	if pc, err := strconv.ParseUint(spec, 0, 64); err == nil {
		for _, e := range m.byPC {
			if e.sal.PC == pc {
				return []SAL{e.sal}, nil
			}
		}
		// an address with no symbol information is still a valid
		// tracepoint location — return a bare SAL.
		return []SAL{{PC: pc}}, nil
	}

	return nil, qerrors.Errorf(qerrors.UserInput, "no symbol %q in current context", spec)
}

// BlockForPC implements Table: the innermost defined block whose entry PC
// is <= pc.
func (m *MemTable) BlockForPC(pc uint64) *Block {
	var best *entry
	for i := range m.byPC {
		if m.byPC[i].sal.PC <= pc {
			best = &m.byPC[i]
		} else {
			break
		}
	}
	if best == nil {
		return nil
	}
	return best.block
}

// PCToSAL implements Table: the nearest-preceding defined entry's line,
// name and source file.
func (m *MemTable) PCToSAL(pc uint64) (int, string, string, bool) {
	var best *entry
	for i := range m.byPC {
		if m.byPC[i].sal.PC <= pc {
			best = &m.byPC[i]
		} else {
			break
		}
	}
	if best == nil {
		return 0, "", "", false
	}
	file := ""
	if best.sal.Symtab != nil {
		file = best.sal.Symtab.Dirname
		if file != "" && best.sal.Symtab.Filename != "" {
			file += "/"
		}
		file += best.sal.Symtab.Filename
	}
	return best.sal.Line, best.name, file, true
}
