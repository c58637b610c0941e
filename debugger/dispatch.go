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

package debugger

import (
	"fmt"
	"os"
	"strings"

	"github.com/ezhilan/qtrace/debugger/terminal"
	"github.com/ezhilan/qtrace/debugger/terminal/commandline"
	"github.com/ezhilan/qtrace/qerrors"
)

// Dispatch tokenises one line of user input and routes it to the matching
// command method, writing any resulting feedback through d.Term. It is the
// single entry point a REPL loop (cmd/qtrace) drives.
func (d *Debugger) Dispatch(line string) error {
	tokens := commandline.TokeniseInput(line)
	cmd, ok := tokens.Get()
	if !ok {
		return nil
	}
	rest := tokens.Remainder()

	switch strings.ToLower(cmd) {
	case "trace":
		t, err := d.Trace(rest)
		if err != nil {
			return err
		}
		d.Term.TermPrintLine(terminal.StyleFeedback, fmt.Sprintf("Tracepoint %d at 0x%x", t.Number, t.Address))
		return nil

	case "actions":
		return d.Actions(rest)

	case "passcount":
		return d.PassCount(rest)

	case "enable":
		return d.dispatchMembership(d.EnableTracepoints, rest)

	case "disable":
		return d.dispatchMembership(d.DisableTracepoints, rest)

	case "delete":
		return d.dispatchMembership(d.DeleteTracepoints, rest)

	case "tstart":
		return d.TStart()

	case "tstop":
		return d.TStop()

	case "tstatus":
		return d.TStatus()

	case "tfind":
		return d.TFind(rest)

	case "tdump":
		d.Term.TermPrintLine(terminal.StyleFeedback, d.Tdump())
		return nil

	case "save-tracepoints":
		return d.SaveTracepoints(rest)

	case "info":
		return d.dispatchInfo(rest)

	case "tracepoints":
		return d.dispatchTracepoints(rest)

	case "collect":
		return d.Collect(rest)

	case "while-stepping":
		return d.WhileStepping(rest)

	case "end":
		return d.End()

	default:
		return qerrors.Errorf(qerrors.UserInput, "undefined command %q", cmd)
	}
}

// dispatchMembership strips an optional leading "tracepoints" keyword (so
// both "enable 1 2" and "enable tracepoints 1 2" are accepted) before
// handing the remaining number list to fn.
func (d *Debugger) dispatchMembership(fn func(string) error, rest string) error {
	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, "tracepoints")
	return fn(strings.TrimSpace(rest))
}

func (d *Debugger) dispatchInfo(rest string) error {
	tokens := commandline.TokeniseInput(rest)
	sub, ok := tokens.Get()
	if !ok {
		return qerrors.Errorf(qerrors.UserInput, "info requires a subcommand")
	}

	switch sub {
	case "tracepoints":
		text, err := d.InfoTracepoints(tokens.Remainder())
		if err != nil {
			return err
		}
		d.Term.TermPrintLine(terminal.StyleFeedback, text)
		return nil

	case "scope":
		text, err := d.InfoScope(tokens.Remainder())
		if err != nil {
			return err
		}
		d.Term.TermPrintLine(terminal.StyleFeedback, text)
		return nil

	default:
		return qerrors.Errorf(qerrors.UserInput, "undefined info command %q", sub)
	}
}

// dispatchTracepoints implements the supplemented "tracepoints dot [file]"
// diagnostic: the rendered graph goes to file if given, else to stdout.
func (d *Debugger) dispatchTracepoints(rest string) error {
	tokens := commandline.TokeniseInput(rest)
	sub, ok := tokens.Get()
	if !ok || sub != "dot" {
		return qerrors.Errorf(qerrors.UserInput, "undefined tracepoints command %q", sub)
	}

	path := strings.TrimSpace(tokens.Remainder())
	if path == "" {
		return d.TracepointsDot(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return qerrors.Errorf(qerrors.UserInput, "cannot create %s: %v", path, err)
	}
	defer f.Close()
	return d.TracepointsDot(f)
}
