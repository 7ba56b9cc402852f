// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import "github.com/aibor/bootrun/internal/session"

// Exit codes of the command.
const (
	ExitSuccess        = 0
	ExitFailure        = 1
	ExitTimeout        = 2
	ExitUserExit       = 3
	ExitTransportError = 4
	ExitSetupError     = 125
)

func exitCode(outcome session.Outcome) int {
	switch outcome {
	case session.Success:
		return ExitSuccess
	case session.Failure:
		return ExitFailure
	case session.Timeout:
		return ExitTimeout
	case session.UserExit:
		return ExitUserExit
	case session.TransportError:
		return ExitTransportError
	default:
		return ExitSetupError
	}
}
