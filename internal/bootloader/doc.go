// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bootloader drives a scripted command and prompt exchange with a
// U-Boot style bootloader until the kernel is booted.
//
// Each command is written with a line terminator and is acknowledged by the
// bootloader prompt showing up in the output received after the command was
// sent. Commands that are not acknowledged in time are sent again until the
// retry limit is reached, which fails the whole sequence.
package bootloader
