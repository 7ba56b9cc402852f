// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/muesli/cancelreader"
	"golang.org/x/term"
)

// isTerminal reports whether r is a file connected to a terminal.
func isTerminal(r io.Reader) bool {
	file, ok := r.(*os.File)

	return ok && term.IsTerminal(int(file.Fd()))
}

// keyboard is the operator input. If stdin is a terminal, it is put into raw
// mode, so every keystroke is passed on unaltered, including Ctrl+C.
type keyboard struct {
	cancelreader.CancelReader

	file  *os.File
	state *term.State
}

func openKeyboard(stdin io.Reader) (*keyboard, error) {
	file, ok := stdin.(*os.File)
	if !ok {
		return nil, ErrStdinNotFile
	}

	reader, err := cancelreader.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("cancel reader: %w", err)
	}

	kbd := &keyboard{
		CancelReader: reader,
		file:         file,
	}

	if term.IsTerminal(int(file.Fd())) {
		state, err := term.MakeRaw(int(file.Fd()))
		if err != nil {
			_ = reader.Close()
			return nil, fmt.Errorf("raw mode: %w", err)
		}

		kbd.state = state
	}

	return kbd, nil
}

// Close restores the terminal state and releases the reader.
func (k *keyboard) Close() error {
	if k.state != nil {
		err := term.Restore(int(k.file.Fd()), k.state)
		if err != nil {
			slog.Warn("Failed to restore terminal", slog.Any("error", err))
		}
	}

	return k.CancelReader.Close() //nolint:wrapcheck
}
