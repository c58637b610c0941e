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

// Package qerrors is a helper package for the plain Go language error type,
// adapted from the gopher2600 "curated" error package. A qerrors error
// implements the error interface and additionally carries a Kind, one of the
// seven error kinds distinguished by the tracepoint core (see Kind below).
//
// Errors are created with Errorf(), which behaves like fmt.Errorf() except
// that formatting is deferred to Error() so that Is()/Has() can compare
// against the original pattern string rather than the formatted message.
package qerrors

import (
	"fmt"
	"strings"
)

// Kind distinguishes the broad category of a qerrors error. The tracepoint
// core never retries automatically; the command surface uses Kind to decide
// how to report a failure (abort the command, skip one collect item and
// continue, etc).
type Kind int

// The seven error kinds the tracepoint core distinguishes.
const (
	// UserInput: malformed command, unknown tracepoint number, unparseable
	// memrange, empty actions entry, non-integral convenience variable.
	UserInput Kind = iota

	// Scope: symbol is constant / optimized-out / unsupported class.
	Scope

	// Internal: register index out of bitmap range, sort input corruption.
	Internal

	// Wire: malformed stub reply.
	Wire

	// Protocol: stub-reported E... error.
	Protocol

	// Transport: empty reply or channel failure.
	Transport

	// Capacity: compiled QTDP body too large for the outgoing packet buffer.
	Capacity
)

func (k Kind) String() string {
	switch k {
	case UserInput:
		return "user input"
	case Scope:
		return "scope"
	case Internal:
		return "internal"
	case Wire:
		return "wire"
	case Protocol:
		return "protocol"
	case Transport:
		return "transport"
	case Capacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// qerror is an implementation of the go language error interface.
type qerror struct {
	kind    Kind
	pattern string
	values  []interface{}
}

// Errorf creates a new qerrors error of the given kind.
//
// Note that unlike the Errorf() function in the fmt package the second
// argument is named "pattern" not "format" — we use the pattern string in
// the Is() and Has() functions, where "pattern" is the more descriptive
// name.
func Errorf(kind Kind, pattern string, values ...interface{}) error {
	return qerror{
		kind:    kind,
		pattern: pattern,
		values:  values,
	}
}

// Error returns the normalised error message. Normalisation removes
// duplicate adjacent error message parts in the error message chain. It
// doesn't affect letter-case or white space.
//
// Implements the go language error interface.
func (er qerror) Error() string {
	s := fmt.Errorf(er.pattern, er.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}

	return strings.Join(p, ": ")
}

// IsAny checks if the error is a qerrors error.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(qerror)
	return ok
}

// Is checks if error is a qerrors error with a specific pattern.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}
	if er, ok := err.(qerror); ok {
		return er.pattern == pattern
	}
	return false
}

// Has checks if error is a qerrors error with a specific pattern somewhere
// in the chain.
func Has(err error, pattern string) bool {
	if err == nil || !IsAny(err) {
		return false
	}
	if Is(err, pattern) {
		return true
	}
	for _, v := range err.(qerror).values {
		if e, ok := v.(qerror); ok {
			if Has(e, pattern) {
				return true
			}
		}
	}
	return false
}

// KindOf returns the Kind of a qerrors error, and false if err was not
// created by Errorf().
func KindOf(err error) (Kind, bool) {
	if err == nil {
		return 0, false
	}
	if er, ok := err.(qerror); ok {
		return er.kind, true
	}
	return 0, false
}

// Is the error of the given kind. Non-qerrors errors are never of any kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
