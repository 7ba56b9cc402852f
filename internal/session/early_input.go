// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
)

// ErrUnknownEarlyInput is returned if an [EarlyInput] name is not known.
var ErrUnknownEarlyInput = errors.New("unknown early input policy")

// EarlyInput is the policy for keystrokes that arrive while the bootloader
// is still driven by the sequencer.
type EarlyInput int

const (
	// QueueEarlyInput delivers the keystrokes after the handoff.
	QueueEarlyInput EarlyInput = iota
	// DropEarlyInput discards the keystrokes.
	DropEarlyInput
)

// String implements [fmt.Stringer].
func (e EarlyInput) String() string {
	switch e {
	case QueueEarlyInput:
		return "queue"
	case DropEarlyInput:
		return "drop"
	default:
		return fmt.Sprintf("EarlyInput(%d)", int(e))
	}
}

// ParseEarlyInput parses the names returned by [EarlyInput.String].
func ParseEarlyInput(s string) (EarlyInput, error) {
	switch s {
	case "", "queue":
		return QueueEarlyInput, nil
	case "drop":
		return DropEarlyInput, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownEarlyInput, s)
	}
}
