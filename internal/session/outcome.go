// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
)

// ErrNoVerdict is the cause of a [TransportError] outcome if the transport
// ended before any pattern matched.
var ErrNoVerdict = errors.New("transport closed without verdict")

// Outcome is the terminal classification of a session.
type Outcome int

const (
	// Success means a success pattern matched.
	Success Outcome = iota
	// Failure means a failure pattern matched.
	Failure
	// Timeout means the session deadline elapsed.
	Timeout
	// UserExit means the operator ended the session.
	UserExit
	// TransportError means the transport failed or ended unexpectedly.
	TransportError
)

// String implements [fmt.Stringer].
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Timeout:
		return "timeout"
	case UserExit:
		return "user exit"
	case TransportError:
		return "transport error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the final result of a session.
type Result struct {
	Outcome Outcome

	// Pattern that matched for [Success] and [Failure].
	Pattern string

	// Err is the cause of a [TransportError] outcome. For [UserExit] it
	// is set if the session was interrupted by cancellation.
	Err error
}

// String implements [fmt.Stringer].
func (r Result) String() string {
	switch {
	case r.Pattern != "":
		return fmt.Sprintf("%s (pattern %q)", r.Outcome, r.Pattern)
	case r.Err != nil:
		return fmt.Sprintf("%s: %v", r.Outcome, r.Err)
	default:
		return r.Outcome.String()
	}
}
