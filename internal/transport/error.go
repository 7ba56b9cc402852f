// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrClosed is returned by reads and writes on a closed [Transport].
	ErrClosed = errors.New("transport closed")

	// ErrUnsupportedBaudRate is returned if a serial baud rate can not be
	// mapped to a termios speed.
	ErrUnsupportedBaudRate = errors.New("unsupported baud rate")

	// ErrNotATerminal is returned if a serial device does not support
	// terminal attributes.
	ErrNotATerminal = errors.New("not a terminal device")
)

// OpenError is returned if a [Transport] can not be established.
type OpenError struct {
	Name string
	Err  error
}

// Error implements the [error] interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Name, e.Err)
}

// Is implements the [errors.Is] interface.
func (*OpenError) Is(other error) bool {
	_, ok := other.(*OpenError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *OpenError) Unwrap() error {
	return e.Err
}

// IOError wraps read and write failures of an established [Transport].
type IOError struct {
	Op  string
	Err error
}

// Error implements the [error] interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Is implements the [errors.Is] interface.
func (*IOError) Is(other error) bool {
	_, ok := other.(*IOError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *IOError) Unwrap() error {
	return e.Err
}

// wrapIOError maps errors of the underlying file to the package's errors.
// [io.EOF] is passed through unchanged.
func wrapIOError(op string, err error, closed bool) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return err
	case closed:
		return ErrClosed
	default:
		return &IOError{Op: op, Err: err}
	}
}
