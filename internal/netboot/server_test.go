// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package netboot_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pin/tftp/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aibor/bootrun/internal/netboot"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startServer(t *testing.T, ctx context.Context, dir string) (*netboot.Server, *tftp.Client) {
	t.Helper()

	server := &netboot.Server{
		Dir:     dir,
		Addr:    "127.0.0.1:0",
		Timeout: time.Second,
	}

	require.NoError(t, server.Start(ctx))
	t.Cleanup(func() { _ = server.Close() })

	client, err := tftp.NewClient(server.LocalAddr().String())
	require.NoError(t, err)

	client.SetTimeout(100 * time.Millisecond)
	client.SetRetries(2)

	return server, client
}

func TestServer(t *testing.T) {
	dir := t.TempDir()
	kernel := bytes.Repeat([]byte("kernel"), 1000)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Image"), kernel, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(dir), "secret"), []byte("x"), 0o600))

	_, client := startServer(t, t.Context(), dir)

	tests := []struct {
		name      string
		file      string
		expected  []byte
		expectErr bool
	}{
		{
			name:     "file",
			file:     "Image",
			expected: kernel,
		},
		{
			name:     "leading slash",
			file:     "/Image",
			expected: kernel,
		},
		{
			name:      "missing",
			file:      "Image.gz",
			expectErr: true,
		},
		{
			name:      "outside root",
			file:      "../secret",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received bytes.Buffer

			transfer, err := client.Receive(tt.file, "octet")
			if err == nil {
				_, err = transfer.WriteTo(&received)
			}

			if tt.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, received.Bytes())
		})
	}
}

func TestServer_WriteRejected(t *testing.T) {
	dir := t.TempDir()

	_, client := startServer(t, t.Context(), dir)

	transfer, err := client.Send("upload", "octet")
	if err == nil {
		_, err = transfer.ReadFrom(bytes.NewReader([]byte("data")))
	}

	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "upload"))
}

func TestServer_Lifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())

	server, _ := startServer(t, ctx, t.TempDir())

	require.ErrorIs(t, server.Start(ctx), netboot.ErrServerRunning)

	cancel()

	require.Eventually(t, func() bool {
		return server.LocalAddr() == nil
	}, time.Second, 5*time.Millisecond, "stopped on cancel")

	require.NoError(t, server.Close(), "close is idempotent")
}

func TestServer_MissingDir(t *testing.T) {
	server := &netboot.Server{
		Dir:  filepath.Join(t.TempDir(), "missing"),
		Addr: "127.0.0.1:0",
	}

	require.ErrorIs(t, server.Start(t.Context()), os.ErrNotExist)
}
