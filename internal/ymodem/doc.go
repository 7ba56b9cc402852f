// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ymodem implements the sending side of the YMODEM file transfer
// protocol as used by the U-Boot "loady" command.
//
// Data is sent in 1024 byte blocks, or 128 byte blocks for short data, with
// either CRC-16 or arithmetic checksum, depending on what the receiver
// requests.
package ymodem
