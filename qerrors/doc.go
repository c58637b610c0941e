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

// Package qerrors provides the error type used throughout the tracepoint
// engine. It is a close adaptation of gopher2600's "curated" error package,
// extended with an explicit Kind so that the seven error categories the
// engine distinguishes (UserInput, Scope, Internal, Wire, Protocol,
// Transport, Capacity) survive as far as the command surface.
package qerrors
