// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session_test

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/aibor/bootrun/internal/transport"
)

var errKeyboardCanceled = errors.New("keyboard canceled")

// fakeTransport is an in-memory target. Output is queued with Emit and
// writes are passed to an optional target behavior.
type fakeTransport struct {
	outputs   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	endOnce   sync.Once

	// rest is only accessed by the single reader.
	rest []byte

	mu      sync.Mutex
	written bytes.Buffer
	closes  int
	onWrite func(f *fakeTransport, data []byte)

	// stalled blocks writes until the transport is closed, like a target
	// that does not drain its input.
	stalled bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		outputs: make(chan []byte, 1024),
		closed:  make(chan struct{}),
	}
}

// Emit queues target output.
func (f *fakeTransport) Emit(output string) {
	f.outputs <- []byte(output)
}

// End closes the target side, so reads return EOF.
func (f *fakeTransport) End() {
	f.endOnce.Do(func() { close(f.outputs) })
}

func (f *fakeTransport) Written() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.written.String()
}

func (f *fakeTransport) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closes
}

func (f *fakeTransport) Read(b []byte) (int, error) {
	if len(f.rest) == 0 {
		select {
		case data, ok := <-f.outputs:
			if !ok {
				return 0, io.EOF
			}

			f.rest = data
		case <-f.closed:
			return 0, transport.ErrClosed
		}
	}

	n := copy(b, f.rest)
	f.rest = f.rest[n:]

	return n, nil
}

func (f *fakeTransport) Write(b []byte) (int, error) {
	if f.stalled {
		<-f.closed
		return 0, transport.ErrClosed
	}

	select {
	case <-f.closed:
		return 0, transport.ErrClosed
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.written.Write(b)

	if f.onWrite != nil {
		f.onWrite(f, b)
	}

	return len(b), nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()

	f.closeOnce.Do(func() { close(f.closed) })

	return nil
}

func (f *fakeTransport) String() string {
	return "fake"
}

// bootloaderBehavior returns a write handler that acts like a bootloader:
// interrupts and lines are answered with the prompt, boot replies with the
// kernel output and held lines are answered once release is closed.
func bootloaderBehavior(
	kernelOutput string,
	hold map[string]chan struct{},
) func(*fakeTransport, []byte) {
	var line []byte

	return func(f *fakeTransport, data []byte) {
		for _, b := range data {
			switch b {
			case 0x03:
				f.Emit("<INTERRUPT>\n=> ")
			case '\n':
				l := string(line)
				line = nil

				f.Emit(l + "\n")

				switch release, held := hold[l]; {
				case l == "boot":
					f.Emit(kernelOutput)
				case held:
					go func() {
						<-release
						f.Emit("=> ")
					}()
				default:
					f.Emit("=> ")
				}
			default:
				line = append(line, b)
			}
		}
	}
}

type fakeKeyboard struct {
	*io.PipeReader

	writer *io.PipeWriter
}

func newFakeKeyboard() *fakeKeyboard {
	reader, writer := io.Pipe()

	return &fakeKeyboard{
		PipeReader: reader,
		writer:     writer,
	}
}

// Type writes keystrokes. It blocks until the session read them.
func (k *fakeKeyboard) Type(input string) {
	_, _ = k.writer.Write([]byte(input))
}

func (k *fakeKeyboard) Cancel() bool {
	_ = k.PipeReader.CloseWithError(errKeyboardCanceled)
	return true
}
