// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qemu composes QEMU system emulator commands that boot a kernel
// directly and expose its first serial port on standard input and output, so
// the emulator can be used as a process transport.
package qemu
