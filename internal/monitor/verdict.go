// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import "fmt"

// Verdict is the classification of the output seen so far.
type Verdict int

const (
	// Undecided means no pattern matched yet.
	Undecided Verdict = iota
	// Success means a success pattern matched.
	Success
	// Failure means a failure pattern matched.
	Failure
)

// String implements [fmt.Stringer].
func (v Verdict) String() string {
	switch v {
	case Undecided:
		return "undecided"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Decided returns true for [Success] and [Failure].
func (v Verdict) Decided() bool {
	return v == Success || v == Failure
}

// Precedence decides which [Verdict] is reported if a success and a failure
// pattern match the same window.
type Precedence int

const (
	// FailureFirst reports [Failure]. A run is never successful in the
	// presence of an explicit failure indicator.
	FailureFirst Precedence = iota
	// SuccessFirst reports [Success].
	SuccessFirst
)

// String implements [fmt.Stringer].
func (p Precedence) String() string {
	switch p {
	case FailureFirst:
		return "failure"
	case SuccessFirst:
		return "success"
	default:
		return fmt.Sprintf("Precedence(%d)", int(p))
	}
}

// ParsePrecedence parses the names returned by [Precedence.String].
func ParsePrecedence(s string) (Precedence, error) {
	switch s {
	case "", "failure":
		return FailureFirst, nil
	case "success":
		return SuccessFirst, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownPrecedence, s)
	}
}
