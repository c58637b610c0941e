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
	"strconv"
	"strings"

	"github.com/ezhilan/qtrace/exprs"
	"github.com/ezhilan/qtrace/logger"
	"github.com/ezhilan/qtrace/symtab"
)

// Verdict classifies one action-list source line (spec.md §4.C).
type Verdict int

const (
	// Generic is a well-formed "collect ..." line.
	Generic Verdict = iota
	// Stepping is a well-formed "while-stepping [N]" line.
	Stepping
	// End is a bare "end" line.
	End
	// Bad is an empty, malformed, or unrecognized line.
	Bad
)

// ValidateResult is the outcome of validating one line.
type ValidateResult struct {
	Verdict Verdict
	// StepCount is populated only when Verdict == Stepping: N if given,
	// -1 if while-stepping was given with no count.
	StepCount int
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// splitCollectItems splits the item list of a "collect" line on the commas
// that separate items, leaving the commas inside a "$(...)" memrange literal
// in place.
func splitCollectItems(s string) []string {
	var items []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				items = append(items, s[start:i])
				start = i + 1
			}
		}
	}
	return append(items, s[start:])
}

// ValidateLine classifies line per spec.md §4.C. block is the tracepoint's
// lexical scope, used to resolve bare variable/register tokens inside
// "collect".
func ValidateLine(line string, block *symtab.Block) ValidateResult {
	line = strings.TrimLeft(line, " \t")

	if line == "" {
		return ValidateResult{Verdict: Bad}
	}

	if hasPrefixFold(line, "collect") {
		items := splitCollectItems(strings.TrimSpace(line[len("collect"):]))
		for _, item := range items {
			if !validateCollectItem(strings.TrimSpace(item), block) {
				return ValidateResult{Verdict: Bad}
			}
		}
		return ValidateResult{Verdict: Generic}
	}

	if hasPrefixFold(line, "while-stepping") {
		rest := strings.TrimSpace(line[len("while-stepping"):])
		if rest == "" {
			return ValidateResult{Verdict: Stepping, StepCount: -1}
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n == 0 {
			logger.Logf("action", "bad while-stepping count %q", rest)
			return ValidateResult{Verdict: Bad}
		}
		return ValidateResult{Verdict: Stepping, StepCount: n}
	}

	if hasPrefixFold(line, "end") {
		return ValidateResult{Verdict: End}
	}

	logger.Logf("action", "unrecognized action line %q", line)
	return ValidateResult{Verdict: Bad}
}

// validateCollectItem validates one comma-separated item inside a "collect"
// line, per spec.md §4.C.
func validateCollectItem(item string, block *symtab.Block) bool {
	if item == "" {
		return false
	}

	if item[0] == '$' {
		switch {
		case hasPrefixFold(item, "$reg"), hasPrefixFold(item, "$arg"), hasPrefixFold(item, "$loc"):
			return true
		case strings.HasPrefix(item, "$("):
			_, _, _, err := parseMemrangeLiteral(item, block)
			return err == nil
		}
	}

	tree, err := exprs.Parse(item, block)
	if err != nil {
		logger.Logf("action", "%v", err)
		return false
	}
	switch tree.Op {
	case exprs.OpVarValue:
		if tree.Symbol.Class == symtab.LocOptimizedOut {
			logger.Logf("action", "%s has been optimized out", tree.Symbol.Name)
			return false
		}
		if tree.Symbol.Class == symtab.LocConst || tree.Symbol.Class == symtab.LocConstBytes {
			logger.Logf("action", "%s is a compile-time constant", tree.Symbol.Name)
			return false
		}
		return true
	case exprs.OpRegister:
		return true
	default:
		logger.Logf("action", "expression %q is not collectible", item)
		return false
	}
}

// parseMemrangeLiteral parses a "$([register,] offset, size)" literal per
// the memrange mini-grammar in spec.md §6: the leading register field is
// optional, matching the common absolute form "$(addr,len)" as well as the
// register-relative "$(reg,offset,size)" form. block resolves the register
// field, when present, the same way a bare register collect item does.
func parseMemrangeLiteral(item string, block *symtab.Block) (kind, offset, size int64, err error) {
	if !strings.HasPrefix(item, "$(") || !strings.HasSuffix(item, ")") {
		return 0, 0, 0, strconv.ErrSyntax
	}
	fields := strings.Split(item[2:len(item)-1], ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}

	switch len(fields) {
	case 2:
		kind = 0
	case 3:
		if tree, terr := exprs.Parse(fields[0], block); terr == nil && tree.Op == exprs.OpRegister {
			kind = int64(tree.Register)
		} else if n, nerr := strconv.ParseInt(fields[0], 0, 64); nerr == nil && n >= 0 {
			kind = n
		} else {
			return 0, 0, 0, strconv.ErrSyntax
		}
		fields = fields[1:]
	default:
		return 0, 0, 0, strconv.ErrSyntax
	}

	offset, err = strconv.ParseInt(fields[0], 0, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	size, err = strconv.ParseInt(fields[1], 0, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	if size <= 0 {
		return 0, 0, 0, strconv.ErrRange
	}
	return kind, offset, size, nil
}
