// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package netboot

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAddress is returned if an interface has no IPv4 address.
	ErrNoAddress = errors.New("no ipv4 address")

	// ErrServerRunning is returned if a [Server] is started twice.
	ErrServerRunning = errors.New("server already running")

	// ErrWriteNotSupported is returned to clients trying to upload files.
	ErrWriteNotSupported = errors.New("write requests not supported")
)

// InterfaceError wraps errors occurring while looking up a network
// interface.
type InterfaceError struct {
	Name string
	Err  error
}

// Error implements the [error] interface.
func (e *InterfaceError) Error() string {
	return fmt.Sprintf("interface %s: %v", e.Name, e.Err)
}

// Is implements the [errors.Is] interface.
func (*InterfaceError) Is(other error) bool {
	_, ok := other.(*InterfaceError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *InterfaceError) Unwrap() error {
	return e.Err
}
