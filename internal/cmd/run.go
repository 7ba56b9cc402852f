// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/aibor/bootrun/internal/config"
	"github.com/aibor/bootrun/internal/netboot"
	"github.com/aibor/bootrun/internal/ramdisk"
	"github.com/aibor/bootrun/internal/session"
	"github.com/aibor/bootrun/internal/transport"
)

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func loadConfig(path FilePath) (*config.Config, error) {
	if path == "" {
		cfg, err := config.Load(os.DirFS("."), config.DefaultFile)
		if errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}

		return cfg, err //nolint:wrapcheck
	}

	dir, file := filepath.Split(string(path))

	return config.Load(os.DirFS(dir), file) //nolint:wrapcheck
}

// packRamdisk packs the directory and sets the archive as ramdisk of the
// target. It returns the path of the archive.
func packRamdisk(cfg *config.Config, dir FilePath) (string, error) {
	// Boards load the ramdisk from the TFTP directory.
	outputDir := ""
	if cfg.Target == config.TargetSerial && cfg.TFTP.Enabled {
		outputDir = cfg.TFTP.Dir
	}

	path, err := ramdisk.WriteTempFile(os.DirFS(string(dir)), outputDir)
	if err != nil {
		return "", fmt.Errorf("pack ramdisk: %w", err)
	}

	if cfg.Target == config.TargetQemu {
		cfg.Qemu.Initrd = path
	} else if cfg.Boot != nil {
		cfg.Boot.Ramdisk = withPath(cfg.Boot.Ramdisk, FilePath(path))
	}

	return path, nil
}

// validateFiles checks the local files of the emulator exist.
func validateFiles(qemu config.Qemu) error {
	files := []struct {
		name string
		path string
	}{
		{"kernel", qemu.Kernel},
		{"device tree", qemu.DeviceTree},
		{"initrd", qemu.Initrd},
	}

	for _, file := range files {
		if file.path == "" {
			continue
		}

		err := ValidateFilePath(file.path)
		if err != nil {
			return fmt.Errorf("%s file: %w", file.name, err)
		}
	}

	return nil
}

func removeRamdisk(path string) {
	slog.Debug("Removing ramdisk archive", slog.String("path", path))

	err := os.Remove(path)
	if err != nil {
		slog.Error(
			"Failed to remove ramdisk archive",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}
}

func openTransport(
	ctx context.Context,
	cfg *config.Config,
	stderr io.Writer,
) (transport.Transport, error) {
	if cfg.Target == config.TargetSerial {
		return transport.OpenSerial(cfg.SerialSpec()) //nolint:wrapcheck
	}

	qemuSpec, err := cfg.QemuSpec()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	processSpec, err := qemuSpec.ProcessSpec()
	if err != nil {
		return nil, fmt.Errorf("qemu: %w", err)
	}

	processSpec.Stderr = stderr

	slog.Debug("QEMU command",
		slog.String("executable", processSpec.Path),
		slog.Any("args", processSpec.Args))

	return transport.OpenProcess(ctx, processSpec) //nolint:wrapcheck
}

func newDisplay(stdout io.Writer, captureFile string) (io.Writer, func(), error) {
	if captureFile == "" {
		return stdout, func() {}, nil
	}

	file, err := os.Create(captureFile)
	if err != nil {
		return nil, nil, fmt.Errorf("capture file: %w", err)
	}

	closeFn := func() {
		err := file.Close()
		if err != nil {
			slog.Error("Failed to close capture file", slog.Any("error", err))
		}
	}

	return io.MultiWriter(stdout, file), closeFn, nil
}

//nolint:funlen,cyclop
func run(ctx context.Context, flags *flags, stdio IO) (session.Result, error) {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return session.Result{}, fmt.Errorf("load config: %w", err)
	}

	flags.apply(cfg)

	err = cfg.Validate()
	if err != nil {
		return session.Result{}, err //nolint:wrapcheck
	}

	if flags.ramdiskDir != "" {
		path, err := packRamdisk(cfg, flags.ramdiskDir)
		if err != nil {
			return session.Result{}, err
		}

		if flags.keepRamdisk {
			defer slog.Info("Preserving ramdisk archive", slog.String("path", path))
		} else {
			defer removeRamdisk(path)
		}
	}

	if cfg.Target == config.TargetQemu {
		err := validateFiles(cfg.Qemu)
		if err != nil {
			return session.Result{}, err
		}
	}

	script, err := cfg.Script(netboot.ServerIP)
	if err != nil {
		return session.Result{}, err //nolint:wrapcheck
	}

	sessionConfig, err := cfg.SessionConfig(isTerminal(stdio.Stdin))
	if err != nil {
		return session.Result{}, err //nolint:wrapcheck
	}

	if cfg.TFTP.Enabled {
		server := &netboot.Server{
			Dir:  cfg.TFTP.Dir,
			Addr: cfg.TFTP.Addr,
		}

		err := server.Start(ctx)
		if err != nil {
			return session.Result{}, fmt.Errorf("tftp: %w", err)
		}

		defer server.Close()
	}

	display, closeDisplay, err := newDisplay(stdio.Stdout, cfg.Session.CaptureFile)
	if err != nil {
		return session.Result{}, err
	}
	defer closeDisplay()

	id := uuid.NewString()
	logger := slog.With(slog.String("session", id))

	target, err := openTransport(ctx, cfg, stdio.Stderr)
	if err != nil {
		// The run has a transport failure even before the session starts.
		if errors.Is(err, &transport.OpenError{}) {
			return session.Result{Outcome: session.TransportError, Err: err}, nil
		}

		return session.Result{}, err
	}

	logger.Debug("Transport open", slog.String("transport", target.String()))

	params := session.Params{
		ID:        id,
		Transport: target,
		Config:    sessionConfig,
		Script:    script,
		Display:   display,
	}

	if sessionConfig.Interactive {
		kbd, err := openKeyboard(stdio.Stdin)
		if err != nil {
			logger.Warn("Keyboard not available", slog.Any("error", err))
		} else {
			defer kbd.Close()

			params.Keyboard = kbd
		}
	}

	result := session.Run(ctx, params)

	if process, ok := target.(*transport.Process); ok {
		if status, exited := process.ExitStatus(); exited {
			logger.Debug("QEMU exited", slog.Int("status", status))
		}
	}

	return result, nil
}

func handleParseArgsError(err error) int {
	// [ErrHelp] is returned when help or version is requested. So exit
	// without error in this case.
	if errors.Is(err, ErrHelp) {
		return ExitSuccess
	}

	// ParseArgs already prints errors, so we just exit without an error.
	if !errors.Is(err, &ParseArgsError{}) {
		slog.Error(err.Error())
	}

	return ExitSetupError
}

func handleRunError(err error) int {
	slog.Error(err.Error())

	return ExitSetupError
}

func handleResult(result session.Result, output io.Writer) int {
	// The target output might not end with a newline.
	fmt.Fprintf(output, "\r\n%s: %s\n", name, result)

	return exitCode(result.Outcome)
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, args []string, stdio IO) int {
	flags := newFlags(stdio.Stderr)

	err := flags.ParseArgs(args)
	if err != nil {
		return handleParseArgsError(err)
	}

	setupLogging(stdio.Stderr, flags.debug)

	result, err := run(ctx, flags, stdio)
	if err != nil {
		return handleRunError(err)
	}

	return handleResult(result, stdio.Stderr)
}
