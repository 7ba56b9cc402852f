// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setKVMDevice(t *testing.T, path string) {
	t.Helper()

	orig := kvmDevice
	kvmDevice = path

	t.Cleanup(func() { kvmDevice = orig })
}

func TestArch_KVMAvailable(t *testing.T) {
	device := filepath.Join(t.TempDir(), "kvm")
	require.NoError(t, os.WriteFile(device, nil, 0o600))

	t.Run("native with device", func(t *testing.T) {
		setKVMDevice(t, device)

		arch := Native
		assert.True(t, arch.KVMAvailable())
	})

	t.Run("native without device", func(t *testing.T) {
		setKVMDevice(t, filepath.Join(t.TempDir(), "missing"))

		arch := Native
		assert.False(t, arch.KVMAvailable())
	})

	t.Run("foreign", func(t *testing.T) {
		setKVMDevice(t, device)

		arch := AMD64
		if Native == AMD64 {
			arch = ARM64
		}

		assert.False(t, arch.KVMAvailable())
	})
}

func TestArch_Set(t *testing.T) {
	var arch Arch

	require.NoError(t, arch.Set("riscv64"))
	assert.Equal(t, RISCV64, arch)
	assert.Equal(t, "riscv64", arch.String())

	require.ErrorIs(t, arch.Set("mips"), ErrArchNotSupported)
	assert.Equal(t, RISCV64, arch, "unchanged on error")
}
