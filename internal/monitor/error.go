// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"errors"
	"fmt"
)

// ErrUnknownPrecedence is returned if a [Precedence] name is not known.
var ErrUnknownPrecedence = errors.New("unknown precedence")

// PatternError is returned if a configured pattern can not be compiled.
type PatternError struct {
	Pattern string
	Err     error
}

// Error implements the [error] interface.
func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern %q: %v", e.Pattern, e.Err)
}

// Is implements the [errors.Is] interface.
func (*PatternError) Is(other error) bool {
	_, ok := other.(*PatternError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *PatternError) Unwrap() error {
	return e.Err
}
