// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bootloader_test

import (
	"bufio"
	"bytes"
	"io"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aibor/bootrun/internal/bootloader"
	"github.com/aibor/bootrun/internal/console"
)

const interruptReply = "<INTERRUPT>\n"

// board simulates a U-Boot console.
type board struct {
	prompt string

	// silent lines are echoed but never acknowledged.
	silent map[string]bool

	// replies are written before the prompt.
	replies map[string]string

	// restarts are lines after which the prompt is only shown again after
	// an interrupt.
	restarts map[string]bool

	ignoreInterrupts bool

	mu         sync.Mutex
	lines      []string
	interrupts int

	outputs chan string
}

func (b *board) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.lines)
}

func (b *board) Count(line string) int {
	count := 0

	for _, l := range b.Lines() {
		if l == line {
			count++
		}
	}

	return count
}

func (b *board) Interrupts() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.interrupts
}

func (b *board) write(s string) {
	b.outputs <- s
}

func (b *board) run(input *bufio.Reader) {
	defer close(b.outputs)

	var line []byte

	for {
		c, err := input.ReadByte()
		if err != nil {
			return
		}

		switch c {
		case 0x03:
			if b.ignoreInterrupts {
				continue
			}

			b.mu.Lock()
			b.interrupts++
			b.mu.Unlock()

			b.write(interruptReply + b.prompt)
		case '\n':
			l := string(line)
			line = nil

			b.mu.Lock()
			b.lines = append(b.lines, l)
			b.mu.Unlock()

			b.write(l + "\n")

			if b.silent[l] {
				continue
			}

			if b.restarts[l] {
				b.write("resetting ...\n")

				continue
			}

			b.write(b.replies[l] + b.prompt)
		default:
			line = append(line, c)
		}
	}
}

type harness struct {
	board   *board
	stream  *console.Stream
	target  io.Writer
	display *bytes.Buffer
}

func newHarness(t *testing.T, b *board) *harness {
	t.Helper()

	if b.prompt == "" {
		b.prompt = bootloader.DefaultPrompt
	}

	b.outputs = make(chan string, 1024)

	inputReader, inputWriter := io.Pipe()
	outputReader, outputWriter := io.Pipe()

	stream := console.NewStream(outputReader)

	var wg sync.WaitGroup

	wg.Add(3)

	go func() {
		defer wg.Done()
		b.run(bufio.NewReader(inputReader))
	}()

	go func() {
		defer wg.Done()
		defer outputWriter.Close()

		for output := range b.outputs {
			_, err := io.WriteString(outputWriter, output)
			if err != nil {
				// Drain, so the board never blocks.
				for range b.outputs {
				}

				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		stream.Pump(t.Context())
	}()

	t.Cleanup(func() {
		_ = inputReader.Close()
		_ = outputReader.Close()

		wg.Wait()
	})

	return &harness{
		board:   b,
		stream:  stream,
		target:  inputWriter,
		display: &bytes.Buffer{},
	}
}

func (h *harness) sequencer(t *testing.T, script bootloader.Script) *bootloader.Sequencer {
	t.Helper()

	sequencer, err := bootloader.NewSequencer(h.stream, h.target, h.display, script)
	require.NoError(t, err)

	return sequencer
}
