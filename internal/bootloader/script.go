// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bootloader

import (
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"time"
)

// Defaults used for zero values of [Script] and [Command].
const (
	DefaultPrompt            = "=> "
	DefaultLineTerminator    = "\n"
	DefaultCommandTimeout    = 10 * time.Second
	DefaultRetries           = 3
	DefaultPromptTimeout     = 60 * time.Second
	DefaultLoadTimeout       = 5 * time.Minute
	DefaultInterruptInterval = 20 * time.Millisecond
	DefaultSettleTime        = 200 * time.Millisecond
)

// NoRetries disables retries of a command. A zero retry count selects the
// default.
const NoRetries = -1

// DefaultInterrupt is sent while waiting for the initial prompt to stop
// the autoboot countdown (Ctrl+C).
var DefaultInterrupt = []byte{0x03}

// Output of U-Boot that indicates a failed load command.
var loadRejections = []string{
	"TFTP error",
	"Retry count exceeded",
	"try 'help'",
}

// Command is a single bootloader command.
type Command struct {
	// Line is the command text without line terminator.
	Line string

	// Prompt acknowledges the command. Defaults to [Script.Prompt].
	Prompt string

	// Timeout for the prompt to show up. Defaults to
	// [Script.CommandTimeout].
	Timeout time.Duration

	// Retries is the number of times the command is sent again if the
	// prompt does not show up in time. Defaults to [Script.Retries]. Use
	// [NoRetries] to disable retries.
	Retries int

	// Reject lists output that marks the command as failed if it shows up
	// before the prompt. Rejected commands are not retried.
	Reject []string
}

func (c Command) attempts() int {
	return max(c.Retries, 0) + 1
}

// Network is the network configuration of the board used for loading
// artifacts via TFTP.
type Network struct {
	BoardIP  string
	ServerIP string
	Netmask  string
	Gateway  string
}

// Artifact is a file loaded into board memory.
type Artifact struct {
	// Path of the local file.
	Path string

	// Name requested from the TFTP server. Defaults to the base name of
	// Path.
	Name string

	// Address in board memory.
	Address uint64
}

func (a *Artifact) name() string {
	if a.Name != "" {
		return a.Name
	}

	return filepath.Base(a.Path)
}

// Script describes the complete interaction with the bootloader.
type Script struct {
	// Prompt of the bootloader.
	Prompt string

	// Interrupt is sent repeatedly while waiting for the initial prompt.
	Interrupt []byte

	// InterruptInterval is the time between two interrupts.
	InterruptInterval time.Duration

	// PromptTimeout limits the wait for the initial prompt.
	PromptTimeout time.Duration

	// SettleTime is the time without output that is awaited after the
	// initial prompt, so output caused by surplus interrupts is not taken
	// as acknowledgment of the first command.
	SettleTime time.Duration

	// LineTerminator is appended to every command.
	LineTerminator string

	// CommandTimeout is the default timeout of commands.
	CommandTimeout time.Duration

	// Retries is the default retry count of commands. Defaults to
	// [DefaultRetries]. Use [NoRetries] to disable retries.
	Retries int

	// LoadTimeout limits the time for loading a single artifact.
	LoadTimeout time.Duration

	// Commands are run in order after the initial prompt.
	Commands []Command

	// Network enables loading artifacts via TFTP. Without, artifacts are
	// sent via YMODEM over the console.
	Network *Network

	Kernel     *Artifact
	DeviceTree *Artifact
	Ramdisk    *Artifact

	// BootCommand is written last. It is not acknowledged by a prompt. If
	// empty, a "bootm" command is derived from the artifacts.
	BootCommand string

	// ResetCommand resets the board. It is issued before the sequence, if
	// ResetBeforeStart is set.
	ResetCommand     string
	ResetBeforeStart bool

	// PowerOffCommand is issued by [Sequencer.PowerOff].
	PowerOffCommand string
}

// withDefaults returns a copy of the script with zero values replaced by
// defaults.
func (s Script) withDefaults() Script {
	if s.Prompt == "" {
		s.Prompt = DefaultPrompt
	}

	if len(s.Interrupt) == 0 {
		s.Interrupt = DefaultInterrupt
	}

	if s.InterruptInterval == 0 {
		s.InterruptInterval = DefaultInterruptInterval
	}

	if s.PromptTimeout == 0 {
		s.PromptTimeout = DefaultPromptTimeout
	}

	if s.SettleTime == 0 {
		s.SettleTime = DefaultSettleTime
	}

	if s.LineTerminator == "" {
		s.LineTerminator = DefaultLineTerminator
	}

	if s.CommandTimeout == 0 {
		s.CommandTimeout = DefaultCommandTimeout
	}

	if s.Retries == 0 {
		s.Retries = DefaultRetries
	}

	if s.LoadTimeout == 0 {
		s.LoadTimeout = DefaultLoadTimeout
	}

	return s
}

// command fills unset fields of cmd with the script defaults.
func (s *Script) command(cmd Command) Command {
	if cmd.Prompt == "" {
		cmd.Prompt = s.Prompt
	}

	if cmd.Timeout == 0 {
		cmd.Timeout = s.CommandTimeout
	}

	if cmd.Retries == 0 {
		cmd.Retries = s.Retries
	}

	return cmd
}

// Validate checks the script for inconsistencies.
func (s *Script) Validate() error {
	if s.ResetBeforeStart && s.ResetCommand == "" {
		return fmt.Errorf("%w: reset requested without reset command", ErrInvalidScript)
	}

	for name, artifact := range s.artifacts() {
		if artifact.Path == "" && (s.Network == nil || artifact.Name == "") {
			return fmt.Errorf("%w: %s: no file", ErrInvalidScript, name)
		}

		if artifact.Address == 0 {
			return fmt.Errorf("%w: %s: no load address", ErrInvalidScript, name)
		}
	}

	if s.Network != nil && s.Network.ServerIP == "" {
		return fmt.Errorf("%w: network without server ip", ErrInvalidScript)
	}

	_, err := s.bootCommand()

	return err
}

// artifacts iterates the configured artifacts in load order.
func (s *Script) artifacts() iter.Seq2[string, *Artifact] {
	return func(yield func(string, *Artifact) bool) {
		for _, entry := range []struct {
			name     string
			artifact *Artifact
		}{
			{"kernel", s.Kernel},
			{"device tree", s.DeviceTree},
			{"ramdisk", s.Ramdisk},
		} {
			if entry.artifact == nil {
				continue
			}

			if !yield(entry.name, entry.artifact) {
				return
			}
		}
	}
}

// networkCommands returns the commands for setting up the board's network.
func (s *Script) networkCommands() []Command {
	if s.Network == nil {
		return nil
	}

	var commands []Command

	for _, env := range []struct{ name, value string }{
		{"ipaddr", s.Network.BoardIP},
		{"serverip", s.Network.ServerIP},
		{"netmask", s.Network.Netmask},
		{"gatewayip", s.Network.Gateway},
	} {
		if env.value == "" {
			continue
		}

		commands = append(commands, Command{
			Line: "setenv " + env.name + " " + env.value,
		})
	}

	return commands
}

// bootCommand returns the configured boot command or derives one from the
// configured artifacts.
func (s *Script) bootCommand() (string, error) {
	if s.BootCommand != "" {
		return s.BootCommand, nil
	}

	if s.Kernel == nil {
		return "", ErrNoBootCommand
	}

	args := []string{"bootm", hexAddress(s.Kernel.Address)}

	switch {
	case s.Ramdisk != nil:
		args = append(args, hexAddress(s.Ramdisk.Address))
	case s.DeviceTree != nil:
		args = append(args, "-")
	}

	if s.DeviceTree != nil {
		args = append(args, hexAddress(s.DeviceTree.Address))
	}

	return strings.Join(args, " "), nil
}

func hexAddress(address uint64) string {
	return fmt.Sprintf("%#x", address)
}
