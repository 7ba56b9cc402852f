// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTarget is returned for target kinds other than [TargetQemu]
	// and [TargetSerial].
	ErrUnknownTarget = errors.New("unknown target")

	// ErrMissingValue is returned if a required value is not set.
	ErrMissingValue = errors.New("value required")

	// ErrInvalidValue is returned if a value is out of its valid range.
	ErrInvalidValue = errors.New("invalid value")
)

// ValidationError wraps errors of a specific configuration field.
type ValidationError struct {
	Field string
	Err   error
}

// Error implements the [error] interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

// Is implements the [errors.Is] interface.
func (*ValidationError) Is(other error) bool {
	_, ok := other.(*ValidationError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
