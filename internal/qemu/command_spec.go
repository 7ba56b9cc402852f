// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"strconv"

	"github.com/aibor/bootrun/internal/transport"
)

const (
	machineTypePC   = "pc"
	machineTypeQ35  = "q35"
	machineTypeVirt = "virt"
)

// consoleID is the chardev connected to standard input and output.
const consoleID = "con0"

// CommandSpec defines a QEMU command booting a kernel with the first serial
// port on standard input and output.
type CommandSpec struct {
	// Path to the qemu-system binary.
	Executable string

	// Path to the kernel to boot.
	Kernel string

	// Path to a flattened device tree passed to the kernel. Optional.
	DeviceTree string

	// Path to an initial ramdisk. Optional.
	Initrd string

	// QEMU machine type to use. Depends on the QEMU binary used.
	Machine string

	// CPU type to use. Depends on machine type and QEMU binary used.
	CPU string

	// Number of CPUs for the guest.
	SMP uint64

	// Memory for the machine in MB.
	Memory uint64

	// Disable KVM support.
	NoKVM bool

	// Kernel command line.
	Cmdline string

	// ExtraArgs are extra arguments that are passed to the QEMU command.
	// They must not collide with the arguments set by the spec itself.
	ExtraArgs []Argument
}

// AddDefaultsFor adds architecture specific default values to the spec for
// fields that are not set yet.
func (s *CommandSpec) AddDefaultsFor(arch Arch) error {
	var executable, machine, cpu string

	switch arch {
	case AMD64:
		executable = "qemu-system-x86_64"
		machine = machineTypeQ35
	case ARM64:
		executable = "qemu-system-aarch64"
		machine = machineTypeVirt
		cpu = "max"
	case RISCV64:
		executable = "qemu-system-riscv64"
		machine = machineTypeVirt
	default:
		return ErrArchNotSupported
	}

	if s.Executable == "" {
		s.Executable = executable
	}

	if s.Machine == "" {
		s.Machine = machine
	}

	if s.CPU == "" {
		s.CPU = cpu
	}

	if s.Cmdline == "" {
		s.Cmdline = "console=" + arch.serialConsole()
	}

	if !s.NoKVM {
		s.NoKVM = !arch.KVMAvailable()
	}

	return nil
}

// Validate checks for missing fields and known incompatibilities.
func (s *CommandSpec) Validate() error {
	if s.Executable == "" {
		return &ArgumentError{"no executable"}
	}

	if s.Kernel == "" {
		return &ArgumentError{"no kernel"}
	}

	switch s.Machine {
	case machineTypeQ35, machineTypePC:
		if s.DeviceTree != "" {
			return &ArgumentError{s.Machine + " does not support device trees"}
		}
	}

	return nil
}

// Arguments compiles the argument list for the QEMU command.
func (s *CommandSpec) Arguments() []Argument {
	args := []Argument{UniqueArg("kernel", s.Kernel)}

	if s.DeviceTree != "" {
		args = append(args, UniqueArg("dtb", s.DeviceTree))
	}

	if s.Initrd != "" {
		args = append(args, UniqueArg("initrd", s.Initrd))
	}

	if s.Machine != "" {
		args = append(args, UniqueArg("machine", s.Machine))
	}

	if s.CPU != "" {
		args = append(args, UniqueArg("cpu", s.CPU))
	}

	if s.SMP != 0 {
		args = append(args, UniqueArg("smp", strconv.FormatUint(s.SMP, 10)))
	}

	if s.Memory != 0 {
		args = append(args, UniqueArg("m", strconv.FormatUint(s.Memory, 10)))
	}

	if !s.NoKVM {
		args = append(args, UniqueArg("enable-kvm"))
	}

	args = append(args,
		// Keystrokes like Ctrl+C go to the guest instead of QEMU.
		RepeatableArg("chardev", "stdio", "id="+consoleID, "signal=off"),
		RepeatableArg("serial", "chardev:"+consoleID),
		// Disable video output.
		UniqueArg("display", "none"),
		// Disable QEMU monitor.
		UniqueArg("monitor", "none"),
		// Guest reboot ends the emulator.
		UniqueArg("no-reboot"),
		// Disable all default devices.
		UniqueArg("nodefaults"),
		// Do not load any user config files.
		UniqueArg("no-user-config"),
	)

	args = append(args, s.ExtraArgs...)

	if s.Cmdline != "" {
		args = append(args, UniqueArg("append", s.Cmdline))
	}

	return args
}

// ProcessSpec validates the spec and returns the specification of the
// emulator process to be used as transport.
func (s *CommandSpec) ProcessSpec() (transport.ProcessSpec, error) {
	err := s.Validate()
	if err != nil {
		return transport.ProcessSpec{}, err
	}

	args, err := BuildArgumentStrings(s.Arguments())
	if err != nil {
		return transport.ProcessSpec{}, err
	}

	return transport.ProcessSpec{
		Path: s.Executable,
		Args: args,
	}, nil
}
