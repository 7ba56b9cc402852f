// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmd provides the CLI command entry point for bootrun. It handles
// flag parsing, configuration, terminal setup and maps the session outcome
// to the exit code.
package cmd
