// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ymodem

import (
	"errors"
	"fmt"
)

var (
	// ErrTooManyRetries is returned if the receiver did not acknowledge a
	// block within the retry limit.
	ErrTooManyRetries = errors.New("too many retries")

	// ErrCanceled is returned if the receiver cancelled the transfer.
	ErrCanceled = errors.New("transfer cancelled by receiver")

	// ErrAckTimeout is returned if the receiver did not respond in time.
	ErrAckTimeout = errors.New("receiver response timed out")

	// ErrNameTooLong is returned if the file name and size do not fit in
	// the header block.
	ErrNameTooLong = errors.New("file name too long")
)

// BlockError is returned if a block could not be transferred.
type BlockError struct {
	Block byte
	Err   error
}

// Error implements the [error] interface.
func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d: %v", e.Block, e.Err)
}

// Is implements the [errors.Is] interface.
func (*BlockError) Is(other error) bool {
	_, ok := other.(*BlockError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *BlockError) Unwrap() error {
	return e.Err
}
