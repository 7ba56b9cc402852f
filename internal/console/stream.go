// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

const (
	// DefaultReadSize is the maximum size of a single chunk.
	DefaultReadSize = 4096

	// backlog is the number of chunks read ahead of the consumer.
	backlog = 64
)

// ErrStreamEnded is returned by [Stream.ReadByte] if the underlying reader
// ended with [io.EOF].
var ErrStreamEnded = errors.New("console stream ended")

// Stream reads from a console in the background and hands out the read
// chunks in order.
type Stream struct {
	reader   io.Reader
	readSize int
	chunks   chan []byte

	// err is written by the pump before chunks is closed.
	err error

	// pending holds bytes of a chunk that were not yet consumed by
	// [Stream.ReadByte].
	pending []byte
}

// NewStream creates a new [Stream] for the given reader. The stream does not
// read before [Stream.Pump] is running.
func NewStream(reader io.Reader) *Stream {
	return &Stream{
		reader:   reader,
		readSize: DefaultReadSize,
		chunks:   make(chan []byte, backlog),
	}
}

// Pump reads from the underlying reader until it returns an error or ctx is
// cancelled. It must be called exactly once.
//
// The read error is not returned but handed to the consumer by [Stream.Next]
// after all chunks read before have been consumed.
func (s *Stream) Pump(ctx context.Context) {
	defer close(s.chunks)

	for {
		buf := make([]byte, s.readSize)

		n, err := s.reader.Read(buf)
		if n > 0 {
			select {
			case s.chunks <- buf[:n]:
			case <-ctx.Done():
				s.err = context.Cause(ctx)
				return
			}
		}

		if err != nil {
			slog.Debug("Console stream ended", slog.Any("error", err))

			s.err = err

			return
		}
	}
}

// Next returns the next chunk. It blocks until a chunk is available, the
// stream ended or ctx is done.
//
// Once the stream ended, the error of the underlying reader is returned,
// which is [io.EOF] if the console closed regularly.
func (s *Stream) Next(ctx context.Context) ([]byte, error) {
	if len(s.pending) > 0 {
		chunk := s.pending
		s.pending = nil

		return chunk, nil
	}

	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			return nil, s.err
		}

		return chunk, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// ReadByte returns the next single byte of the stream. Remaining bytes of the
// chunk are returned by subsequent calls of ReadByte or [Stream.Next].
//
// It returns [ErrStreamEnded] if the stream ended regularly.
func (s *Stream) ReadByte(ctx context.Context) (byte, error) {
	for len(s.pending) == 0 {
		chunk, err := s.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, ErrStreamEnded
			}

			return 0, err
		}

		s.pending = chunk
	}

	b := s.pending[0]
	s.pending = s.pending[1:]

	return b, nil
}
