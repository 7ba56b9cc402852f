// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import "unicode/utf8"

// DefaultWindowSize is the default size of the [RollingBuffer] in bytes.
const DefaultWindowSize = 64 * 1024

// RollingBuffer accumulates UTF-8 text up to a fixed size. Once the size is
// exceeded, the oldest text is discarded. The buffer is only ever trimmed at
// rune boundaries, so it might hold up to [utf8.UTFMax]-1 bytes less than its
// size.
//
// RollingBuffer is not safe for concurrent use.
type RollingBuffer struct {
	data     []byte
	capacity int
}

// NewRollingBuffer creates a [RollingBuffer] with the given capacity in bytes.
// [DefaultWindowSize] is used if capacity is not positive.
func NewRollingBuffer(capacity int) *RollingBuffer {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}

	return &RollingBuffer{
		data:     make([]byte, 0, capacity),
		capacity: capacity,
	}
}

// Write appends text to the buffer and discards the oldest text exceeding
// the capacity. It never fails.
func (b *RollingBuffer) Write(text []byte) (int, error) {
	written := len(text)

	// Only the tail of an oversized write can survive anyway.
	if len(text) > b.capacity {
		text = text[len(text)-b.capacity:]
	}

	if excess := len(b.data) + len(text) - b.capacity; excess > 0 {
		b.discard(excess)
	}

	b.data = append(b.data, text...)

	// The tail cut above might have split a rune.
	b.alignStart()

	return written, nil
}

// discard removes at least n bytes from the start of the buffer.
func (b *RollingBuffer) discard(n int) {
	n = min(n, len(b.data))
	b.data = append(b.data[:0], b.data[n:]...)
}

// alignStart drops continuation bytes at the start of the buffer.
func (b *RollingBuffer) alignStart() {
	idx := 0
	for idx < len(b.data) && idx < utf8.UTFMax && !utf8.RuneStart(b.data[idx]) {
		idx++
	}

	if idx > 0 {
		b.discard(idx)
	}
}

// String returns the current content.
func (b *RollingBuffer) String() string {
	return string(b.data)
}

// Len returns the current content size in bytes.
func (b *RollingBuffer) Len() int {
	return len(b.data)
}

// Cap returns the capacity of the buffer in bytes.
func (b *RollingBuffer) Cap() int {
	return b.capacity
}
