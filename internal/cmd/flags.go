// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/spf13/pflag"

	"github.com/aibor/bootrun/internal/config"
)

const (
	name = "bootrun"

	memMin = 128
	memMax = 16384

	smpMin = 1
	smpMax = 16

	usageMessage = `Usage of 'bootrun':
    bootrun [flags...]

Boots a kernel in QEMU or on a board attached via serial line and classifies
the console output by the patterns of the configuration file.

Using it with QEMU:
	bootrun --kernel=build/bzImage --ramdisk-dir=build/rootfs

Using it with a board, configured in ./bootrun.yaml:
	bootrun --kernel=build/Image --tftp

Press Ctrl+A x to end an interactive session.

Exit codes: 0 success, 1 failure, 2 timeout, 3 user exit, 4 transport error,
125 usage or setup error.
`
)

type flags struct {
	flagSet *pflag.FlagSet
	output  io.Writer

	configPath  FilePath
	kernel      FilePath
	deviceTree  FilePath
	ramdisk     FilePath
	ramdiskDir  FilePath
	timeout     time.Duration
	memory      uint64
	smp         uint64
	interactive bool
	noInteract  bool
	tftp        bool
	keepRamdisk bool
	debug       bool
	version     bool
}

func newFlags(output io.Writer) *flags {
	flags := &flags{output: output}

	flags.initFlagset(output)

	return flags
}

func (f *flags) ParseArgs(args []string) error {
	err := f.flagSet.Parse(args)
	if err != nil {
		// Usage has been printed already.
		if errors.Is(err, ErrHelp) {
			return &ParseArgsError{msg: "help requested", err: err}
		}

		return f.fail("flag parse", err)
	}

	// With version flag, just print the version and exit. Using [ErrHelp]
	// the main binary is supposed to return with a non error exit code.
	if f.version {
		err := f.printVersionInformation()
		return &ParseArgsError{msg: "version requested", err: err}
	}

	if f.flagSet.NArg() > 0 {
		return f.fail("unexpected positional arguments", nil)
	}

	if f.interactive && f.noInteract {
		return f.fail("--interactive and --no-interactive are exclusive", nil)
	}

	return nil
}

func (f *flags) initFlagset(output io.Writer) {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = f.usage
	flagSet.SortFlags = false

	flagSet.VarP(
		&f.configPath,
		"config",
		"c",
		"configuration file (default ./"+config.DefaultFile+" if present)",
	)

	flagSet.Var(
		&f.kernel,
		"kernel",
		"kernel to boot, overrides the configuration",
	)

	flagSet.Var(
		&f.deviceTree,
		"dtb",
		"device tree to boot with, overrides the configuration",
	)

	flagSet.Var(
		&f.ramdisk,
		"ramdisk",
		"initial ramdisk, overrides the configuration",
	)

	flagSet.Var(
		&f.ramdiskDir,
		"ramdisk-dir",
		"directory packed into a cpio archive used as initial ramdisk",
	)

	flagSet.DurationVarP(
		&f.timeout,
		"timeout",
		"t",
		f.timeout,
		"session deadline, overrides the configuration (0 for none)",
	)

	flagSet.Var(
		&limitedUintValue{
			Value: &f.memory,
			min:   memMin,
			max:   memMax,
		},
		"memory",
		"memory (in MB) for the QEMU VM",
	)

	flagSet.Var(
		&limitedUintValue{
			Value: &f.smp,
			min:   smpMin,
			max:   smpMax,
		},
		"smp",
		"number of CPUs for the QEMU VM",
	)

	flagSet.BoolVarP(
		&f.interactive,
		"interactive",
		"i",
		f.interactive,
		"forward keyboard input to the target (default if stdin is a terminal)",
	)

	flagSet.BoolVar(
		&f.noInteract,
		"no-interactive",
		f.noInteract,
		"do not forward keyboard input to the target",
	)

	flagSet.BoolVar(
		&f.tftp,
		"tftp",
		f.tftp,
		"serve the boot artifacts with the built-in TFTP server",
	)

	flagSet.BoolVar(
		&f.keepRamdisk,
		"keep-ramdisk",
		f.keepRamdisk,
		"do not delete the ramdisk packed from --ramdisk-dir on exit",
	)

	flagSet.BoolVarP(
		&f.debug,
		"debug",
		"d",
		f.debug,
		"enable debug output",
	)

	flagSet.BoolVar(
		&f.version,
		"version",
		f.version,
		"show version and exit",
	)

	f.flagSet = flagSet
}

// apply overrides configuration values with the flags set.
func (f *flags) apply(cfg *config.Config) {
	if f.flagSet.Changed("timeout") {
		cfg.Session.Timeout = f.timeout
	}

	switch {
	case f.interactive:
		cfg.Session.Interactive = &f.interactive
	case f.noInteract:
		interactive := false
		cfg.Session.Interactive = &interactive
	}

	if f.tftp {
		cfg.TFTP.Enabled = true
	}

	if cfg.Target == config.TargetQemu {
		f.applyQemu(&cfg.Qemu)
		return
	}

	if cfg.Boot != nil {
		cfg.Boot.Kernel = withPath(cfg.Boot.Kernel, f.kernel)
		cfg.Boot.DeviceTree = withPath(cfg.Boot.DeviceTree, f.deviceTree)
		cfg.Boot.Ramdisk = withPath(cfg.Boot.Ramdisk, f.ramdisk)
	}
}

func (f *flags) applyQemu(qemu *config.Qemu) {
	if f.kernel != "" {
		qemu.Kernel = string(f.kernel)
	}

	if f.deviceTree != "" {
		qemu.DeviceTree = string(f.deviceTree)
	}

	if f.ramdisk != "" {
		qemu.Initrd = string(f.ramdisk)
	}

	if f.memory != 0 {
		qemu.Memory = f.memory
	}

	if f.smp != 0 {
		qemu.SMP = f.smp
	}
}

// withPath sets the path of the artifact, if path is not empty. The load
// address must be given by the configuration.
func withPath(artifact *config.Artifact, path FilePath) *config.Artifact {
	if path == "" {
		return artifact
	}

	if artifact == nil {
		artifact = &config.Artifact{}
	}

	artifact.Path = string(path)

	return artifact
}

// fail fails like pflag does. It prints the error first and then usage.
func (f *flags) fail(msg string, err error) error {
	err = &ParseArgsError{msg: msg, err: err}
	fmt.Fprintln(f.output, err.Error())

	f.flagSet.Usage()

	return err
}

func (f *flags) printVersionInformation() error {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return ErrReadBuildInfo
	}

	fmt.Fprintf(f.output, "Version: %s\n", buildInfo.Main.Version)

	return ErrHelp
}

func (f *flags) usage() {
	fmt.Fprint(f.output, usageMessage)
	fmt.Fprintln(f.output, "\nFlags:")
	f.flagSet.PrintDefaults()
}
