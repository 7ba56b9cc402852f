// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"log/slog"
	"regexp"

	"github.com/charmbracelet/x/ansi"
)

// Config defines the patterns and matching behavior of a [Monitor].
type Config struct {
	// Success patterns in order of evaluation.
	Success []*regexp.Regexp

	// Failure patterns in order of evaluation.
	Failure []*regexp.Regexp

	// WindowSize is the size of the matched window in bytes. Output older
	// than that can not be matched. [DefaultWindowSize] is used if 0.
	WindowSize int

	// Precedence decides ties between success and failure patterns.
	Precedence Precedence

	// StripANSI removes ANSI escape sequences before matching.
	StripANSI bool
}

// Compile compiles the given expressions in order. The first invalid
// expression fails with a [PatternError].
func Compile(exprs []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(exprs))

	for _, expr := range exprs {
		pattern, err := regexp.Compile(expr)
		if err != nil {
			return nil, &PatternError{Pattern: expr, Err: err}
		}

		patterns = append(patterns, pattern)
	}

	return patterns, nil
}

// Monitor classifies console output by the configured patterns.
//
// Once a decisive [Verdict] is found, it is latched and further output is
// ignored.
//
// Monitor is not safe for concurrent use. It is supposed to be owned by the
// single goroutine that reads the console output.
type Monitor struct {
	config  Config
	window  *RollingBuffer
	decoder decoder

	verdict Verdict
	match   string
}

// New creates a new [Monitor] with the given config.
func New(config Config) *Monitor {
	return &Monitor{
		config:  config,
		window:  NewRollingBuffer(config.WindowSize),
		decoder: newDecoder(),
	}
}

// Append adds a chunk of raw console output and evaluates the patterns
// against the updated window.
//
// After a decisive verdict has been found, chunks are ignored and the latched
// verdict is returned.
func (m *Monitor) Append(chunk []byte) Verdict {
	if m.verdict.Decided() {
		return m.verdict
	}

	text, invalid := m.decoder.decode(chunk)
	if invalid > 0 {
		slog.Debug("Replaced invalid UTF-8 sequences in console output",
			slog.Int("count", invalid))
	}

	_, _ = m.window.Write(text)

	m.verdict, m.match = m.evaluate()

	return m.verdict
}

// Evaluate evaluates the patterns against the current window without
// changing any state.
func (m *Monitor) Evaluate() Verdict {
	verdict, _ := m.evaluate()
	return verdict
}

// Verdict returns the latched verdict.
func (m *Monitor) Verdict() Verdict {
	return m.verdict
}

// Match returns the pattern that caused the latched verdict. It is empty as
// long as there is no decisive verdict.
func (m *Monitor) Match() string {
	return m.match
}

// Window returns the current content of the matched window.
func (m *Monitor) Window() string {
	return m.window.String()
}

func (m *Monitor) evaluate() (Verdict, string) {
	text := m.window.String()
	if m.config.StripANSI {
		text = ansi.Strip(text)
	}

	failure := firstMatch(m.config.Failure, text)
	success := firstMatch(m.config.Success, text)

	switch {
	case failure != nil && success != nil:
		if m.config.Precedence == SuccessFirst {
			return Success, success.String()
		}

		return Failure, failure.String()
	case failure != nil:
		return Failure, failure.String()
	case success != nil:
		return Success, success.String()
	default:
		return Undecided, ""
	}
}

func firstMatch(patterns []*regexp.Regexp, text string) *regexp.Regexp {
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			return pattern
		}
	}

	return nil
}
