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

// Package actionprompt implements the scoped keyboard-interrupt disposition
// the "actions" sub-prompt needs (spec.md §5): for the duration of the
// sub-prompt, the terminal is switched to cbreak mode so a keystroke
// interrupts immediately, and normal canonical mode is restored on every
// exit path, even an error or signal.
package actionprompt

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/term/termios"

	"github.com/ezhilan/qtrace/logger"
)

// Prompt owns the terminal-mode switch for one "actions" sub-prompt
// session.
type Prompt struct {
	input *os.File

	canonical syscall.Termios
	cbreak    syscall.Termios

	mu       sync.Mutex
	acquired bool
}

// New prepares a Prompt bound to input. input must be a terminal; errors
// from termios calls are logged rather than raised, since a caller that
// cannot introspect terminal attributes should still be able to fall back
// to reading lines without cbreak-mode interrupt.
func New(input *os.File) *Prompt {
	p := &Prompt{input: input}
	if err := termios.Tcgetattr(input.Fd(), &p.canonical); err != nil {
		logger.Logf("actionprompt", "Tcgetattr: %v", err)
	}
	p.cbreak = p.canonical
	termios.Cfmakecbreak(&p.cbreak)
	return p
}

// Acquire switches the terminal into cbreak mode: a keystroke interrupts
// immediately, for the duration this disposition is held.
func (p *Prompt) Acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := termios.Tcsetattr(p.input.Fd(), termios.TCSANOW, &p.cbreak); err != nil {
		return err
	}
	p.acquired = true
	return nil
}

// Release restores canonical mode. It is idempotent and safe to call on
// every exit path (normal completion, error, or signal) regardless of
// whether Acquire succeeded.
func (p *Prompt) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.acquired {
		return
	}
	if err := termios.Tcsetattr(p.input.Fd(), termios.TCSANOW, &p.canonical); err != nil {
		logger.Logf("actionprompt", "Tcsetattr restore: %v", err)
	}
	p.acquired = false
}

// RunScoped acquires cbreak mode, runs fn, and restores canonical mode
// before returning, whether fn returns an error or a signal arrives while
// fn is running. This is the transactional acquisition spec.md §9 names.
func RunScoped(input *os.File, fn func(interrupted <-chan os.Signal) error) error {
	p := New(input)
	if err := p.Acquire(); err != nil {
		return err
	}
	defer p.Release()

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, syscall.SIGINT)
	defer signal.Stop(interrupted)

	return fn(interrupted)
}
