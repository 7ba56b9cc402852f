// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aibor/bootrun/internal/monitor"
)

func TestRollingBuffer(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		writes   []string
		expected string
	}{
		{
			name:     "below capacity",
			capacity: 8,
			writes:   []string{"ab", "cd"},
			expected: "abcd",
		},
		{
			name:     "exact capacity",
			capacity: 4,
			writes:   []string{"ab", "cd"},
			expected: "abcd",
		},
		{
			name:     "oldest discarded",
			capacity: 4,
			writes:   []string{"abc", "def"},
			expected: "cdef",
		},
		{
			name:     "oversized write",
			capacity: 4,
			writes:   []string{"ab", "0123456789"},
			expected: "6789",
		},
		{
			name:     "trim at rune boundary",
			capacity: 4,
			writes:   []string{"aä", "bcd"},
			expected: "bcd",
		},
		{
			name:     "trim multibyte rune from oversized write",
			capacity: 3,
			writes:   []string{"xöyz"},
			expected: "yz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buffer := monitor.NewRollingBuffer(tt.capacity)

			for _, write := range tt.writes {
				n, err := buffer.Write([]byte(write))
				assert.NoError(t, err)
				assert.Equal(t, len(write), n)
			}

			assert.Equal(t, tt.expected, buffer.String())
			assert.LessOrEqual(t, buffer.Len(), buffer.Cap())
		})
	}
}

func TestRollingBufferDefaultCapacity(t *testing.T) {
	buffer := monitor.NewRollingBuffer(0)
	assert.Equal(t, monitor.DefaultWindowSize, buffer.Cap())
}
