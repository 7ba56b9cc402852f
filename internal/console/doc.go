// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package console turns the reads of a target console into an ordered stream
// of chunks.
//
// A [Stream] has a single pump goroutine reading from the console. The chunks
// are consumed by one consumer at a time: the boot sequencer while it drives
// the bootloader and the output monitor after the handoff.
package console
