// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aibor/bootrun/internal/console"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startPump(t *testing.T, ctx context.Context, stream *console.Stream) {
	t.Helper()

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		stream.Pump(ctx)
	}()

	t.Cleanup(wg.Wait)
}

func TestStreamNext(t *testing.T) {
	reader, writer := io.Pipe()
	stream := console.NewStream(reader)
	startPump(t, t.Context(), stream)

	go func() {
		_, _ = writer.Write([]byte("first"))
		_, _ = writer.Write([]byte("second"))
		_ = writer.Close()
	}()

	chunk, err := stream.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "first", string(chunk))

	chunk, err = stream.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "second", string(chunk))

	_, err = stream.Next(t.Context())
	require.ErrorIs(t, err, io.EOF)

	_, err = stream.Next(t.Context())
	require.ErrorIs(t, err, io.EOF, "ended stream should keep returning error")
}

func TestStreamReadError(t *testing.T) {
	reader, writer := io.Pipe()
	stream := console.NewStream(reader)
	startPump(t, t.Context(), stream)

	_ = writer.CloseWithError(assert.AnError)

	_, err := stream.Next(t.Context())
	require.ErrorIs(t, err, assert.AnError)
}

func TestStreamReadByte(t *testing.T) {
	stream := console.NewStream(strings.NewReader("abc"))
	startPump(t, t.Context(), stream)

	b, err := stream.ReadByte(t.Context())
	require.NoError(t, err)
	assert.Equal(t, byte('a'), b)

	chunk, err := stream.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "bc", string(chunk), "rest of chunk should be returned")

	_, err = stream.ReadByte(t.Context())
	require.ErrorIs(t, err, console.ErrStreamEnded)
}

func TestStreamContextDone(t *testing.T) {
	reader, writer := io.Pipe()
	stream := console.NewStream(reader)
	startPump(t, t.Context(), stream)

	// Cleanups run in reverse order, so the pump is unblocked before it is
	// waited for.
	t.Cleanup(func() { _ = writer.Close() })

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := stream.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
