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

// Command qtrace is a headless front end for the tracepoint engine: it
// connects to a remote stub over TCP, reads commands from stdin, and prints
// feedback to stdout — no GUI, no video, no audio, matching the single
// display-less surface the engine actually has (spec.md §1).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ezhilan/qtrace/config"
	"github.com/ezhilan/qtrace/dashboard"
	"github.com/ezhilan/qtrace/debugger"
	"github.com/ezhilan/qtrace/debugger/terminal"
	"github.com/ezhilan/qtrace/debugger/terminal/plainterm"
	"github.com/ezhilan/qtrace/logger"
	"github.com/ezhilan/qtrace/protocol"
	"github.com/ezhilan/qtrace/symtab"
)

func main() {
	target := flag.String("target", "", "address of the remote tracepoint stub, host:port")
	configPath := flag.String("config", "", "path to a YAML configuration file")
	dashboardAddr := flag.String("dashboard", "", "address to serve the live runtime-stats dashboard on, e.g. :6060")
	interactiveActions := flag.Bool("cbreak-actions", true, "switch the terminal to cbreak mode for the duration of the actions sub-prompt")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *dashboardAddr != "" {
		stop := dashboard.Start(*dashboardAddr)
		defer stop()
	}

	// engine stays nil until a target is connected; debugger.New and every
	// command that needs it treat a nil *protocol.Engine as "no target is
	// connected" rather than dialing eagerly against an empty address.
	var engine *protocol.Engine
	if *target != "" {
		ch, err := protocol.DialTCP(*target)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer ch.Close()
		engine = &protocol.Engine{Channel: ch, PacketBufferSize: cfg.PacketBufferSize}
	}

	term := plainterm.New(os.Stdin, os.Stdout)
	if err := term.Initialise(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer term.CleanUp()

	dbg := debugger.New(symtab.NewMemTable(), engine, term, cfg.DefaultInputRadix, cfg.NumRegisters)
	if *interactiveActions {
		dbg.ActionsInput = os.Stdin
	}

	run(dbg, term)
}

// run drives the single-threaded command loop: read one line, dispatch it,
// report any error, repeat. There is no task scheduler (spec.md §5); each
// command runs to completion before the next line is read.
func run(dbg *debugger.Debugger, term terminal.Terminal) {
	for {
		line, err := term.ReadLine("(qtrace) ")
		if err == io.EOF {
			return
		}
		if err != nil {
			logger.Logf("main", "reading command: %v", err)
			return
		}

		if err := dbg.Dispatch(line); err != nil {
			term.TermPrintLine(terminal.StyleError, err.Error())
		}
	}
}
