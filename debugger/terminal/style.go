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

package terminal

// Style identifies the category of text passed to Output.TermPrintLine. A
// terminal implementation is free to interpret it as it sees fit, typically
// as a colour.
type Style int

const (
	// StyleEcho is user input echoed back, normalised (leading space
	// trimmed, etc).
	StyleEcho Style = iota

	// StyleHelp is help-system text.
	StyleHelp

	// StyleFeedback is a command's primary output.
	StyleFeedback

	// StyleFeedbackSecondary is a command's secondary output (a notice, a
	// collection-skip reason).
	StyleFeedbackSecondary

	// StyleError is error output.
	StyleError

	// StyleLog is internal logging output.
	StyleLog
)
