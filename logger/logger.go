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

// Package logger is a small ring-buffer logger shared by every subsystem in
// this module, in place of ad-hoc fmt.Println calls. Every protocol
// exchange and every action-line rejection or collection notice logs through
// here so that a session can be reconstructed after the fact with Tail().
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const maxEntries = 400

var (
	mu      sync.Mutex
	entries []string
)

// Log appends a new entry, tagged with tag, to the log. If the log has
// grown beyond maxEntries the oldest entry is dropped.
func Log(tag string, msg string) {
	mu.Lock()
	defer mu.Unlock()

	entries = append(entries, fmt.Sprintf("%s: %s", tag, msg))
	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}
}

// Logf is a convenience wrapper around Log() that accepts a format string.
func Logf(tag string, format string, values ...interface{}) {
	Log(tag, fmt.Sprintf(format, values...))
}

// Write dumps every entry currently in the log to w, one per line.
func Write(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if len(entries) == 0 {
		return
	}
	fmt.Fprint(w, strings.Join(entries, "\n")+"\n")
}

// Tail dumps the last n entries currently in the log to w, one per line. If
// n is greater than the number of entries, every entry is dumped. If n is
// zero or negative, nothing is dumped.
func Tail(w io.Writer, n int) {
	mu.Lock()
	defer mu.Unlock()

	if n <= 0 || len(entries) == 0 {
		return
	}
	if n > len(entries) {
		n = len(entries)
	}
	fmt.Fprint(w, strings.Join(entries[len(entries)-n:], "\n")+"\n")
}

// Clear empties the log. Intended for use by tests.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	entries = nil
}
