// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/drone/envsubst"
	"gopkg.in/yaml.v3"

	"github.com/aibor/bootrun/internal/monitor"
	"github.com/aibor/bootrun/internal/netboot"
	"github.com/aibor/bootrun/internal/transport"
)

// DefaultFile is the configuration file used if none is given.
const DefaultFile = "bootrun.yaml"

// Target kinds.
const (
	TargetQemu   = "qemu"
	TargetSerial = "serial"
)

// Config is the complete bootrun configuration.
type Config struct {
	// Target is the kind of target, [TargetQemu] or [TargetSerial].
	Target string `yaml:"target"`

	Qemu     Qemu     `yaml:"qemu"`
	Serial   Serial   `yaml:"serial"`
	Patterns Patterns `yaml:"patterns"`

	// Boot is the bootloader script. Without, the target is expected to
	// boot on its own.
	Boot *Boot `yaml:"boot"`

	Session Session `yaml:"session"`
	TFTP    TFTP    `yaml:"tftp"`
}

// Qemu describes the emulated machine.
type Qemu struct {
	Executable string     `yaml:"executable"`
	Arch       string     `yaml:"arch"`
	Kernel     string     `yaml:"kernel"`
	DeviceTree string     `yaml:"dtb"`
	Initrd     string     `yaml:"initrd"`
	Machine    string     `yaml:"machine"`
	CPU        string     `yaml:"cpu"`
	SMP        uint64     `yaml:"smp"`
	Memory     uint64     `yaml:"memory"`
	NoKVM      bool       `yaml:"no_kvm"`
	Cmdline    string     `yaml:"cmdline"`
	ExtraArgs  []ExtraArg `yaml:"extra_args"`
}

// ExtraArg is an additional QEMU argument, like {name: device, value:
// virtio-rng-pci}.
type ExtraArg struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Serial describes the serial line to a board.
type Serial struct {
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baud_rate"`
}

// Patterns define the classification of the target output.
type Patterns struct {
	Success    []string `yaml:"success"`
	Failure    []string `yaml:"failure"`
	Precedence string   `yaml:"precedence"`
	WindowSize int      `yaml:"window_size"`
	StripANSI  bool     `yaml:"strip_ansi"`
}

// Boot is the bootloader script.
type Boot struct {
	Prompt            string        `yaml:"prompt"`
	Interrupt         string        `yaml:"interrupt"`
	InterruptInterval time.Duration `yaml:"interrupt_interval"`
	PromptTimeout     time.Duration `yaml:"prompt_timeout"`
	SettleTime        time.Duration `yaml:"settle_time"`
	LineTerminator    string        `yaml:"line_terminator"`
	CommandTimeout    time.Duration `yaml:"command_timeout"`
	Retries           *int          `yaml:"retries"`
	LoadTimeout       time.Duration `yaml:"load_timeout"`
	Commands          []Command     `yaml:"commands"`
	Network           *Network      `yaml:"network"`
	Kernel            *Artifact     `yaml:"kernel"`
	DeviceTree        *Artifact     `yaml:"dtb"`
	Ramdisk           *Artifact     `yaml:"ramdisk"`
	BootCommand       string        `yaml:"boot_command"`
	ResetCommand      string        `yaml:"reset_command"`
	ResetBeforeStart  bool          `yaml:"reset_before_start"`
	PowerOffCommand   string        `yaml:"poweroff_command"`
	PowerOffAfter     bool          `yaml:"poweroff_after"`
}

// Command is a single bootloader command.
type Command struct {
	Line    string        `yaml:"line"`
	Prompt  string        `yaml:"prompt"`
	Timeout time.Duration `yaml:"timeout"`
	Retries *int          `yaml:"retries"`
	Reject  []string      `yaml:"reject"`
}

// UnmarshalYAML allows commands to be given as plain strings.
func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&c.Line)
	}

	type plain Command

	return node.Decode((*plain)(c))
}

// Network is the board's network configuration. The server IP can be given
// directly or resolved from a host interface.
type Network struct {
	BoardIP         string `yaml:"board_ip"`
	ServerIP        string `yaml:"server_ip"`
	ServerInterface string `yaml:"server_interface"`
	Netmask         string `yaml:"netmask"`
	Gateway         string `yaml:"gateway"`
}

// Artifact is a file loaded into the board's memory.
type Artifact struct {
	Path    string `yaml:"path"`
	Name    string `yaml:"name"`
	Address uint64 `yaml:"address"`
}

// Session defines the behavior of the run.
type Session struct {
	// Interactive forwards the keyboard to the target. If unset, it is
	// enabled if standard input is a terminal.
	Interactive *bool         `yaml:"interactive"`
	Timeout     time.Duration `yaml:"timeout"`
	EarlyInput  string        `yaml:"early_input"`
	CaptureFile string        `yaml:"capture_file"`
}

// TFTP configures the built-in TFTP server.
type TFTP struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration used for values missing in the file.
func Default() *Config {
	return &Config{
		Target: TargetQemu,
		Serial: Serial{
			BaudRate: transport.DefaultBaudRate,
		},
		Patterns: Patterns{
			Precedence: monitor.FailureFirst.String(),
			WindowSize: monitor.DefaultWindowSize,
		},
		TFTP: TFTP{
			Addr: netboot.DefaultAddr,
		},
	}
}

// Load reads the named file from fsys. See [Parse].
func Load(fsys fs.FS, name string) (*Config, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return cfg, nil
}

// Parse substitutes environment variables in data and decodes the result on
// top of [Default]. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	expanded, err := envsubst.EvalEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("substitute env: %w", err)
	}

	cfg := Default()

	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)

	err = decoder.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return cfg, nil
}
