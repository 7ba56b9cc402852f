// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"os"
	"runtime"
)

// Arch is a guest architecture.
type Arch string

// Supported guest architectures.
const (
	AMD64   Arch = "amd64"
	ARM64   Arch = "arm64"
	RISCV64 Arch = "riscv64"
)

// Native is the architecture of the host.
const Native Arch = Arch(runtime.GOARCH)

// kvmDevice is a variable so tests can replace it.
var kvmDevice = "/dev/kvm"

// String implements [fmt.Stringer].
func (a *Arch) String() string {
	return string(*a)
}

// Set implements the flag.Value interface.
func (a *Arch) Set(s string) error {
	switch Arch(s) {
	case AMD64, ARM64, RISCV64:
		*a = Arch(s)
	default:
		return ErrArchNotSupported
	}

	return nil
}

// Type implements the pflag.Value interface.
func (*Arch) Type() string {
	return "arch"
}

// KVMAvailable checks if KVM can be used for the architecture. This requires
// the host to be of the same architecture and the KVM device to be writable.
func (a *Arch) KVMAvailable() bool {
	if *a != Native {
		return false
	}

	f, err := os.OpenFile(kvmDevice, os.O_WRONLY, 0)
	if err != nil {
		return false
	}

	_ = f.Close()

	return true
}

// serialConsole is the kernel name of the first serial port of the default
// machine of the architecture.
func (a *Arch) serialConsole() string {
	if *a == ARM64 {
		return "ttyAMA0"
	}

	return "ttyS0"
}
