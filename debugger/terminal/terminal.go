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

// Package terminal defines the command layer's view of the world: reading a
// line of input and writing styled output. The command dispatcher
// (spec.md §4.H) is built against these interfaces, not against a concrete
// terminal, so it can run unattended in tests.
package terminal

// Input defines how the command layer reads one line of user input. Every
// implementation's ReadLine call is a suspension point (spec.md §5): the
// command thread blocks here until a line is available.
type Input interface {
	// ReadLine blocks for one line of input, prompted with prompt.
	ReadLine(prompt string) (string, error)
}

// Output defines how the command layer writes one line of output.
type Output interface {
	TermPrintLine(Style, string)
}

// Terminal combines Input and Output plus lifecycle hooks. Not every
// implementation needs to do anything for Initialise/CleanUp; a scripted
// test terminal, for instance, can leave them empty.
type Terminal interface {
	Input
	Output

	Initialise() error
	CleanUp()
}
