// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package transport provides the byte stream connections to a boot target.
//
// A target is either a child process that exposes its console on standard
// input and output, like an emulator started with stdio serial, or a serial
// device attached to a board.
package transport
