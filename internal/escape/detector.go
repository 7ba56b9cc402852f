// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package escape detects the local exit key sequence in operator keystrokes.
//
// The sequence is Ctrl+A (0x01) immediately followed by "x". It is never
// forwarded to the target. Any other use of Ctrl+A is passed through
// unchanged.
package escape

const (
	// Lead is the first byte of the exit sequence (Ctrl+A).
	Lead byte = 0x01

	// Exit is the byte following [Lead] that triggers the exit.
	Exit byte = 'x'
)

// State is the state of a [Detector].
type State int

const (
	// Idle means no lead byte is pending.
	Idle State = iota
	// SawLead means the last byte was the lead byte, which is held back.
	SawLead
)

// Detector is a state machine consuming keystrokes one byte at a time.
//
// The zero value is ready to use.
type Detector struct {
	state State
}

// State returns the current state.
func (d *Detector) State() State {
	return d.state
}

// Feed consumes a single byte. It returns the bytes to forward to the target
// and true if the exit sequence is complete.
func (d *Detector) Feed(b byte) ([]byte, bool) {
	switch d.state {
	case SawLead:
		d.state = Idle

		if b == Exit {
			return nil, true
		}

		return []byte{Lead, b}, false
	default:
		if b == Lead {
			d.state = SawLead
			return nil, false
		}

		return []byte{b}, false
	}
}

// Process consumes the given bytes in order. It returns the bytes to forward
// and true if the exit sequence was found. Bytes following the exit sequence
// are not consumed.
func (d *Detector) Process(input []byte) ([]byte, bool) {
	forward := make([]byte, 0, len(input))

	for _, b := range input {
		out, exit := d.Feed(b)
		if exit {
			return forward, true
		}

		forward = append(forward, out...)
	}

	return forward, false
}
