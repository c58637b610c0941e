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

// Package plainterm implements the terminal.Terminal interface as simply as
// possible: cooked-mode stdin, unbuffered stdout, no line editing. It is the
// default terminal cmd/qtrace starts with.
package plainterm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ezhilan/qtrace/debugger/terminal"
)

// PlainTerminal reads lines from input and writes styled lines to output.
type PlainTerminal struct {
	input  *bufio.Scanner
	output io.Writer
}

// New returns a PlainTerminal reading from r and writing to w.
func New(r io.Reader, w io.Writer) *PlainTerminal {
	return &PlainTerminal{input: bufio.NewScanner(r), output: w}
}

// Initialise implements terminal.Terminal. Cooked mode needs no setup.
func (pt *PlainTerminal) Initialise() error { return nil }

// CleanUp implements terminal.Terminal. Cooked mode needs no teardown.
func (pt *PlainTerminal) CleanUp() {}

// ReadLine implements terminal.Input.
func (pt *PlainTerminal) ReadLine(prompt string) (string, error) {
	fmt.Fprint(pt.output, prompt)
	if !pt.input.Scan() {
		if err := pt.input.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return pt.input.Text(), nil
}

// TermPrintLine implements terminal.Output.
func (pt *PlainTerminal) TermPrintLine(style terminal.Style, s string) {
	if style == terminal.StyleError {
		s = "* " + s
	}
	s = strings.TrimRight(s, "\n")
	fmt.Fprintln(pt.output, s)
}
