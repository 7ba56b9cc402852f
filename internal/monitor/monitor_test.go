// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/bootrun/internal/monitor"
)

func newMonitor(t *testing.T, success, failure []string) *monitor.Monitor {
	t.Helper()

	successPatterns, err := monitor.Compile(success)
	require.NoError(t, err)

	failurePatterns, err := monitor.Compile(failure)
	require.NoError(t, err)

	return monitor.New(monitor.Config{
		Success: successPatterns,
		Failure: failurePatterns,
	})
}

func feed(m *monitor.Monitor, chunks ...string) []monitor.Verdict {
	verdicts := make([]monitor.Verdict, 0, len(chunks))
	for _, chunk := range chunks {
		verdicts = append(verdicts, m.Append([]byte(chunk)))
	}

	return verdicts
}

func TestMonitorScenarios(t *testing.T) {
	tests := []struct {
		name            string
		output          string
		expectedVerdict monitor.Verdict
		expectedMatch   string
	}{
		{
			name:            "success",
			output:          "Booting...\nHello from my OS\n",
			expectedVerdict: monitor.Success,
			expectedMatch:   "Hello from my OS",
		},
		{
			name:            "failure",
			output:          "Booting...\nkernel panic: OOM\n",
			expectedVerdict: monitor.Failure,
			expectedMatch:   "panic",
		},
		{
			name:            "failure wins",
			output:          "Hello from my OS\nkernel panic\n",
			expectedVerdict: monitor.Failure,
			expectedMatch:   "panic",
		},
		{
			name:            "no match",
			output:          "Booting...\n",
			expectedVerdict: monitor.Undecided,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMonitor(t, []string{"Hello from my OS"}, []string{"panic"})

			verdict := m.Append([]byte(tt.output))
			assert.Equal(t, tt.expectedVerdict, verdict)
			assert.Equal(t, tt.expectedMatch, m.Match())
		})
	}
}

func TestMonitorChunkSplitInvariance(t *testing.T) {
	output := "Booting...\nHello from my OS\n"

	for first := 1; first < len(output); first++ {
		for second := first; second < len(output); second++ {
			m := newMonitor(t, []string{"Hello from my OS"}, []string{"panic"})
			verdicts := feed(m, output[:first], output[first:second], output[second:])

			successCount := 0

			for idx, verdict := range verdicts {
				if verdict == monitor.Success &&
					(idx == 0 || verdicts[idx-1] != monitor.Success) {
					successCount++
				}
			}

			assert.Equal(t, 1, successCount,
				"success should be reported exactly once for split %d/%d",
				first, second)
			assert.Equal(t, monitor.Success, verdicts[len(verdicts)-1])
		}
	}
}

func TestMonitorLatchesVerdict(t *testing.T) {
	m := newMonitor(t, []string{"OK"}, []string{"panic"})

	assert.Equal(t, monitor.Success, m.Append([]byte("OK\n")))
	assert.Equal(t, monitor.Success, m.Append([]byte("panic\n")),
		"output after verdict should be ignored")
	assert.NotContains(t, m.Window(), "panic")
	assert.Equal(t, "OK", m.Match())
}

func TestMonitorEvaluateIsIdempotent(t *testing.T) {
	m := newMonitor(t, []string{"Hello"}, []string{"panic"})
	m.Append([]byte("Booting...\nHello\n"))

	window := m.Window()
	first := m.Evaluate()
	second := m.Evaluate()

	assert.Equal(t, first, second)
	assert.Equal(t, monitor.Success, first)
	assert.Equal(t, window, m.Window(), "evaluate must not change the window")
}

func TestMonitorPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		precedence monitor.Precedence
		expected   monitor.Verdict
	}{
		{
			name:       "failure first",
			precedence: monitor.FailureFirst,
			expected:   monitor.Failure,
		},
		{
			name:       "success first",
			precedence: monitor.SuccessFirst,
			expected:   monitor.Success,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := monitor.New(monitor.Config{
				Success:    mustCompile(t, "done"),
				Failure:    mustCompile(t, "error"),
				Precedence: tt.precedence,
			})

			assert.Equal(t, tt.expected, m.Append([]byte("done with error")))
		})
	}
}

func TestMonitorWindowBound(t *testing.T) {
	m := monitor.New(monitor.Config{
		Success:    mustCompile(t, "start.*end"),
		WindowSize: 16,
	})

	m.Append([]byte("start"))
	m.Append([]byte(strings.Repeat(".", 16)))

	assert.Equal(t, monitor.Undecided, m.Append([]byte("end")),
		"match older than window should not be found")
	assert.LessOrEqual(t, len(m.Window()), 16)
}

func TestMonitorDecoding(t *testing.T) {
	t.Run("invalid bytes are replaced", func(t *testing.T) {
		m := newMonitor(t, []string{"ok�ok"}, nil)

		assert.Equal(t, monitor.Success, m.Append([]byte("ok\xffok")))
	})

	t.Run("rune split across chunks", func(t *testing.T) {
		m := newMonitor(t, []string{"Grüße"}, nil)
		encoded := []byte("Grüße")

		// Split in the middle of the two byte "ü".
		assert.Equal(t, monitor.Undecided, m.Append(encoded[:3]))
		assert.Equal(t, monitor.Success, m.Append(encoded[3:]))
		assert.NotContains(t, m.Window(), "�")
	})
}

func TestMonitorStripANSI(t *testing.T) {
	output := "\x1b[32mHello\x1b[0m from my OS"

	tests := []struct {
		name      string
		stripANSI bool
		expected  monitor.Verdict
	}{
		{
			name:      "raw",
			expected:  monitor.Undecided,
			stripANSI: false,
		},
		{
			name:      "stripped",
			expected:  monitor.Success,
			stripANSI: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := monitor.New(monitor.Config{
				Success:   mustCompile(t, "Hello from my OS"),
				StripANSI: tt.stripANSI,
			})

			assert.Equal(t, tt.expected, m.Append([]byte(output)))
		})
	}
}

func TestCompile(t *testing.T) {
	patterns, err := monitor.Compile([]string{"a+", "b"})
	require.NoError(t, err)
	assert.Len(t, patterns, 2)

	_, err = monitor.Compile([]string{"ok", "(unclosed"})
	require.ErrorIs(t, err, &monitor.PatternError{})
	assert.Contains(t, err.Error(), "(unclosed")
}

func TestParsePrecedence(t *testing.T) {
	precedence, err := monitor.ParsePrecedence("")
	require.NoError(t, err)
	assert.Equal(t, monitor.FailureFirst, precedence)

	precedence, err = monitor.ParsePrecedence("success")
	require.NoError(t, err)
	assert.Equal(t, monitor.SuccessFirst, precedence)

	_, err = monitor.ParsePrecedence("random")
	require.ErrorIs(t, err, monitor.ErrUnknownPrecedence)
}

func mustCompile(t *testing.T, exprs ...string) []*regexp.Regexp {
	t.Helper()

	patterns, err := monitor.Compile(exprs)
	require.NoError(t, err)

	return patterns
}
