// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ramdisk packs directory trees into newc cpio archives as used for
// initial ramdisks by the Linux kernel.
package ramdisk
