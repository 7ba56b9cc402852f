// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session runs a single boot of a target and resolves its outcome.
//
// A session owns the transport to the target. It optionally drives the
// bootloader until the kernel is booted, then displays and monitors the
// console output while forwarding operator keystrokes to the target. The
// first of a pattern verdict, the exit key sequence, the session deadline or
// the end of the transport ends the session. The transport is closed on every
// path before [Run] returns.
package session
