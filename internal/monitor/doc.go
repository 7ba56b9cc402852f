// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package monitor classifies streaming console output as success or failure
// by matching regular expressions against a bounded window of the most recent
// output.
//
// Patterns are evaluated against the whole window after every appended chunk,
// so a match may span any number of reads. Text that has been pushed out of
// the window can not be matched anymore.
package monitor
