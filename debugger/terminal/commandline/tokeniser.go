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

// Package commandline tokenises one line of user input into the words the
// command dispatcher (spec.md §4.H) switches on, honouring double-quoted
// spans so a locspec or condition string can itself contain spaces.
package commandline

import "strings"

// Tokens walks over one tokenised input line.
type Tokens struct {
	input  string
	tokens []string
	curr   int
}

// String returns the tokens rejoined with single spaces.
func (tk *Tokens) String() string {
	return strings.Join(tk.tokens, " ")
}

// Reset begins traversal from the first token.
func (tk *Tokens) Reset() {
	tk.curr = 0
}

// IsEnd reports whether traversal has consumed every token.
func (tk Tokens) IsEnd() bool {
	return tk.curr >= len(tk.tokens)
}

// Len returns the token count.
func (tk Tokens) Len() int {
	return len(tk.tokens)
}

// Remainder returns every token from the current position to the end,
// rejoined with single spaces — used for free-text tails like a locspec or
// a collect item list.
func (tk Tokens) Remainder() string {
	return strings.Join(tk.tokens[tk.curr:], " ")
}

// Get returns the next token and advances, or ("", false) at the end.
func (tk *Tokens) Get() (string, bool) {
	if tk.curr >= len(tk.tokens) {
		return "", false
	}
	tk.curr++
	return tk.tokens[tk.curr-1], true
}

// Unget walks back one token.
func (tk *Tokens) Unget() {
	if tk.curr > 0 {
		tk.curr--
	}
}

// Peek returns the next token without advancing.
func (tk Tokens) Peek() (string, bool) {
	if tk.curr >= len(tk.tokens) {
		return "", false
	}
	return tk.tokens[tk.curr], true
}

// TokeniseInput splits input into space-separated tokens, treating a
// double-quoted span as a single token.
func TokeniseInput(input string) *Tokens {
	input = strings.TrimSpace(input)
	return &Tokens{input: input, tokens: tokenise(input)}
}

func tokenise(input string) []string {
	quoted := false
	tokens := make([]string, 0)

	markStart := 0
	markEnd := 0

	i := 0
	for i = 0; i < len(input); i++ {
		switch input[i] {
		case ' ':
			if !quoted {
				if markEnd >= markStart {
					tokens = append(tokens, input[markStart:markEnd+1])
				}
				markStart = i + 1
			} else {
				markEnd = i
			}
		case '"':
			if quoted {
				if markEnd > markStart {
					tokens = append(tokens, input[markStart:markEnd+1])
				}
				markEnd = i
			}
			markStart = i + 1
			quoted = !quoted
		default:
			markEnd = i
		}
	}
	markEnd = i

	if markEnd > markStart {
		tokens = append(tokens, input[markStart:markEnd])
	}

	return tokens
}
