// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"net"

	"github.com/aibor/bootrun/internal/bootloader"
	"github.com/aibor/bootrun/internal/monitor"
	"github.com/aibor/bootrun/internal/qemu"
	"github.com/aibor/bootrun/internal/session"
	"github.com/aibor/bootrun/internal/transport"
)

// ResolveFunc returns the IPv4 address of a host network interface.
type ResolveFunc func(iface string) (net.IP, error)

// Validate checks all values that can be checked without touching the
// host.
func (c *Config) Validate() error {
	switch c.Target {
	case TargetQemu:
		if c.Qemu.Kernel == "" {
			return invalid("qemu.kernel", ErrMissingValue)
		}

		if c.Qemu.Arch != "" {
			var arch qemu.Arch

			err := arch.Set(c.Qemu.Arch)
			if err != nil {
				return invalid("qemu.arch", err)
			}
		}
	case TargetSerial:
		if c.Serial.Device == "" {
			return invalid("serial.device", ErrMissingValue)
		}
	default:
		return invalid("target", fmt.Errorf("%w: %q", ErrUnknownTarget, c.Target))
	}

	_, err := c.MonitorConfig()
	if err != nil {
		return err
	}

	_, err = c.SessionConfig(false)
	if err != nil {
		return err
	}

	if c.Boot != nil && c.Boot.Network != nil {
		network := c.Boot.Network
		if network.ServerIP == "" && network.ServerInterface == "" {
			return invalid("boot.network.server_ip", ErrMissingValue)
		}
	}

	if c.TFTP.Enabled && c.TFTP.Dir == "" {
		return invalid("tftp.dir", ErrMissingValue)
	}

	return nil
}

// MonitorConfig compiles the patterns.
func (c *Config) MonitorConfig() (monitor.Config, error) {
	success, err := monitor.Compile(c.Patterns.Success)
	if err != nil {
		return monitor.Config{}, invalid("patterns.success", err)
	}

	failure, err := monitor.Compile(c.Patterns.Failure)
	if err != nil {
		return monitor.Config{}, invalid("patterns.failure", err)
	}

	precedence, err := monitor.ParsePrecedence(c.Patterns.Precedence)
	if err != nil {
		return monitor.Config{}, invalid("patterns.precedence", err)
	}

	if c.Patterns.WindowSize < 0 {
		return monitor.Config{}, invalid("patterns.window_size", ErrInvalidValue)
	}

	return monitor.Config{
		Success:    success,
		Failure:    failure,
		WindowSize: c.Patterns.WindowSize,
		Precedence: precedence,
		StripANSI:  c.Patterns.StripANSI,
	}, nil
}

// SessionConfig returns the session configuration. Interactive is the
// value used if the file does not set it.
func (c *Config) SessionConfig(interactive bool) (session.Config, error) {
	monitorConfig, err := c.MonitorConfig()
	if err != nil {
		return session.Config{}, err
	}

	earlyInput, err := session.ParseEarlyInput(c.Session.EarlyInput)
	if err != nil {
		return session.Config{}, invalid("session.early_input", err)
	}

	if c.Session.Timeout < 0 {
		return session.Config{}, invalid("session.timeout", ErrInvalidValue)
	}

	if c.Session.Interactive != nil {
		interactive = *c.Session.Interactive
	}

	return session.Config{
		Monitor:       monitorConfig,
		Interactive:   interactive,
		Timeout:       c.Session.Timeout,
		EarlyInput:    earlyInput,
		PowerOffAfter: c.Boot != nil && c.Boot.PowerOffAfter,
	}, nil
}

// QemuSpec returns the emulator command spec with defaults for the
// configured architecture, the host's by default.
func (c *Config) QemuSpec() (qemu.CommandSpec, error) {
	arch := qemu.Native
	if c.Qemu.Arch != "" {
		err := arch.Set(c.Qemu.Arch)
		if err != nil {
			return qemu.CommandSpec{}, invalid("qemu.arch", err)
		}
	}

	extraArgs := make([]qemu.Argument, 0, len(c.Qemu.ExtraArgs))
	for _, arg := range c.Qemu.ExtraArgs {
		extraArgs = append(extraArgs, qemu.RepeatableArg(arg.Name, arg.Value))
	}

	spec := qemu.CommandSpec{
		Executable: c.Qemu.Executable,
		Kernel:     c.Qemu.Kernel,
		DeviceTree: c.Qemu.DeviceTree,
		Initrd:     c.Qemu.Initrd,
		Machine:    c.Qemu.Machine,
		CPU:        c.Qemu.CPU,
		SMP:        c.Qemu.SMP,
		Memory:     c.Qemu.Memory,
		NoKVM:      c.Qemu.NoKVM,
		Cmdline:    c.Qemu.Cmdline,
		ExtraArgs:  extraArgs,
	}

	err := spec.AddDefaultsFor(arch)
	if err != nil {
		return qemu.CommandSpec{}, invalid("qemu.arch", err)
	}

	return spec, nil
}

// SerialSpec returns the serial device spec.
func (c *Config) SerialSpec() transport.SerialSpec {
	return transport.SerialSpec{
		Path:     c.Serial.Device,
		BaudRate: c.Serial.BaudRate,
	}
}

// Script converts the boot section into a validated script. It returns nil
// if there is no boot section. The server IP is resolved with resolve, if
// only the interface is given.
func (c *Config) Script(resolve ResolveFunc) (*bootloader.Script, error) {
	if c.Boot == nil {
		return nil, nil //nolint:nilnil
	}

	boot := c.Boot

	script := &bootloader.Script{
		Prompt:            boot.Prompt,
		InterruptInterval: boot.InterruptInterval,
		PromptTimeout:     boot.PromptTimeout,
		SettleTime:        boot.SettleTime,
		LineTerminator:    boot.LineTerminator,
		CommandTimeout:    boot.CommandTimeout,
		Retries:           retries(boot.Retries),
		LoadTimeout:       boot.LoadTimeout,
		Kernel:            boot.Kernel.artifact(),
		DeviceTree:        boot.DeviceTree.artifact(),
		Ramdisk:           boot.Ramdisk.artifact(),
		BootCommand:       boot.BootCommand,
		ResetCommand:      boot.ResetCommand,
		ResetBeforeStart:  boot.ResetBeforeStart,
		PowerOffCommand:   boot.PowerOffCommand,
	}

	if boot.Interrupt != "" {
		script.Interrupt = []byte(boot.Interrupt)
	}

	for _, cmd := range boot.Commands {
		script.Commands = append(script.Commands, cmd.command())
	}

	if boot.Network != nil {
		network, err := boot.Network.network(resolve)
		if err != nil {
			return nil, err
		}

		script.Network = network
	}

	err := script.Validate()
	if err != nil {
		return nil, invalid("boot", err)
	}

	return script, nil
}

func (c Command) command() bootloader.Command {
	return bootloader.Command{
		Line:    c.Line,
		Prompt:  c.Prompt,
		Timeout: c.Timeout,
		Retries: retries(c.Retries),
		Reject:  c.Reject,
	}
}

// retries maps the configured retry count to the script's. Omitted counts
// select the default, zero or less disables retries.
func retries(count *int) int {
	switch {
	case count == nil:
		return 0
	case *count <= 0:
		return bootloader.NoRetries
	default:
		return *count
	}
}

func (n *Network) network(resolve ResolveFunc) (*bootloader.Network, error) {
	serverIP := n.ServerIP

	if serverIP == "" && n.ServerInterface != "" {
		if resolve == nil {
			return nil, invalid("boot.network.server_interface", ErrInvalidValue)
		}

		ip, err := resolve(n.ServerInterface)
		if err != nil {
			return nil, invalid("boot.network.server_interface", err)
		}

		serverIP = ip.String()
	}

	return &bootloader.Network{
		BoardIP:  n.BoardIP,
		ServerIP: serverIP,
		Netmask:  n.Netmask,
		Gateway:  n.Gateway,
	}, nil
}

func (a *Artifact) artifact() *bootloader.Artifact {
	if a == nil {
		return nil
	}

	return &bootloader.Artifact{
		Path:    a.Path,
		Name:    a.Name,
		Address: a.Address,
	}
}
