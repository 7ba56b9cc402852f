// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bootloader

import (
	"errors"
	"fmt"
)

var (
	// ErrAutomationFailed is wrapped by all errors returned by
	// [Sequencer.Run].
	ErrAutomationFailed = errors.New("boot automation failed")

	// ErrCommandTimeout is returned if the prompt did not show up in time.
	ErrCommandTimeout = errors.New("prompt not seen in time")

	// ErrLoadRejected is returned if the bootloader does not accept a
	// load command.
	ErrLoadRejected = errors.New("load command rejected")

	// ErrNoBootCommand is returned if no boot command is configured and
	// none can be derived from the artifacts.
	ErrNoBootCommand = errors.New("no boot command")

	// ErrInvalidScript is returned for inconsistent scripts.
	ErrInvalidScript = errors.New("invalid script")
)

// CommandError is returned if a command failed.
type CommandError struct {
	Line     string
	Attempts int
	Err      error
}

// Error implements the [error] interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q (%d attempts): %v", e.Line, e.Attempts, e.Err)
}

// Is implements the [errors.Is] interface.
func (*CommandError) Is(other error) bool {
	_, ok := other.(*CommandError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// errSettled is the cause of the quiet period timeout after the initial
// prompt.
var errSettled = errors.New("settled")
