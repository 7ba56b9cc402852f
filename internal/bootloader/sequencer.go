// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bootloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aibor/bootrun/internal/ymodem"
)

// maxTail bounds the output kept for matching prompts.
const maxTail = 4096

// Stream is the console output as consumed by the [Sequencer].
type Stream interface {
	Next(ctx context.Context) ([]byte, error)
	ReadByte(ctx context.Context) (byte, error)
}

// Sequencer runs a [Script] against a bootloader.
//
// It must be the only writer to the target for the time it is running.
type Sequencer struct {
	stream  Stream
	target  io.Writer
	display io.Writer
	script  Script
}

// NewSequencer creates a new [Sequencer]. Output read from the stream is
// written to display as is.
func NewSequencer(
	stream Stream,
	target io.Writer,
	display io.Writer,
	script Script,
) (*Sequencer, error) {
	script = script.withDefaults()

	err := script.Validate()
	if err != nil {
		return nil, err
	}

	if display == nil {
		display = io.Discard
	}

	return &Sequencer{
		stream:  stream,
		target:  target,
		display: display,
		script:  script,
	}, nil
}

// Run runs the complete script. It returns after the boot command has been
// written. From then on, the caller owns the target.
func (s *Sequencer) Run(ctx context.Context) error {
	type step struct {
		name string
		run  func(context.Context) error
	}

	steps := []step{{"initial prompt", s.awaitInitialPrompt}}

	if s.script.ResetBeforeStart {
		steps = append(steps, step{"reset", s.reset})
	}

	steps = append(steps,
		step{"commands", s.runCommands},
		step{"network setup", s.setupNetwork},
		step{"load artifacts", s.loadArtifacts},
		step{"boot", s.boot},
	)

	for _, step := range steps {
		slog.Debug("Boot sequence step", slog.String("step", step.name))

		err := step.run(ctx)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAutomationFailed, step.name, err)
		}
	}

	return nil
}

// Exec sends a single command and waits for the prompt. It is retried as
// configured.
func (s *Sequencer) Exec(ctx context.Context, cmd Command) error {
	cmd = s.script.command(cmd)

	var err error

	for attempt := 1; attempt <= cmd.attempts(); attempt++ {
		slog.Debug("Sending bootloader command",
			slog.String("line", cmd.Line),
			slog.Int("attempt", attempt))

		err = s.attempt(ctx, cmd)
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrCommandTimeout) {
			return &CommandError{Line: cmd.Line, Attempts: attempt, Err: err}
		}

		slog.Warn("Bootloader prompt not seen",
			slog.String("line", cmd.Line),
			slog.Int("attempt", attempt),
			slog.Duration("timeout", cmd.Timeout))
	}

	return &CommandError{Line: cmd.Line, Attempts: cmd.attempts(), Err: err}
}

// PowerOff writes the power-off command, if configured. It is not
// acknowledged.
func (s *Sequencer) PowerOff() error {
	if s.script.PowerOffCommand == "" {
		return nil
	}

	slog.Debug("Sending power-off command",
		slog.String("line", s.script.PowerOffCommand))

	return s.send(s.script.PowerOffCommand)
}

func (s *Sequencer) attempt(ctx context.Context, cmd Command) error {
	err := s.send(cmd.Line)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeoutCause(ctx, cmd.Timeout, ErrCommandTimeout)
	defer cancel()

	output, err := s.readUntil(ctx, []byte(cmd.Prompt))
	if err != nil {
		return err
	}

	for _, reject := range cmd.Reject {
		if bytes.Contains(output, []byte(reject)) {
			return fmt.Errorf("%w: %q", ErrLoadRejected, reject)
		}
	}

	return nil
}

func (s *Sequencer) send(line string) error {
	_, err := io.WriteString(s.target, line+s.script.LineTerminator)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

func (s *Sequencer) show(output []byte) {
	_, err := s.display.Write(output)
	if err != nil {
		slog.Debug("Display write failed", slog.Any("error", err))
	}
}

// readUntil reads and displays output until the marker shows up. It returns
// the output preceding the marker, bounded to [maxTail] bytes.
func (s *Sequencer) readUntil(ctx context.Context, marker []byte) ([]byte, error) {
	var tail []byte

	for {
		chunk, err := s.stream.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}

		s.show(chunk)

		tail = append(tail, chunk...)

		if idx := bytes.Index(tail, marker); idx >= 0 {
			return tail[:idx], nil
		}

		if len(tail) > maxTail {
			tail = tail[len(tail)-maxTail:]
		}
	}
}

// awaitInitialPrompt sends interrupts until the prompt shows up and waits
// for the bootloader to settle.
func (s *Sequencer) awaitInitialPrompt(ctx context.Context) error {
	ctx, cancel := context.WithTimeoutCause(ctx, s.script.PromptTimeout, ErrCommandTimeout)
	defer cancel()

	interruptCtx, stopInterrupts := context.WithCancel(ctx)
	defer stopInterrupts()

	var group errgroup.Group

	group.Go(func() error {
		return s.interrupt(interruptCtx)
	})

	_, err := s.readUntil(ctx, []byte(s.script.Prompt))

	stopInterrupts()

	err = errors.Join(err, group.Wait())
	if err != nil {
		return err
	}

	return s.settle(ctx)
}

func (s *Sequencer) interrupt(ctx context.Context) error {
	ticker := time.NewTicker(s.script.InterruptInterval)
	defer ticker.Stop()

	for {
		_, err := s.target.Write(s.script.Interrupt)
		if err != nil {
			return fmt.Errorf("write interrupt: %w", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// settle consumes output until there is none for the configured settle time.
func (s *Sequencer) settle(ctx context.Context) error {
	for {
		quietCtx, cancel := context.WithTimeoutCause(ctx, s.script.SettleTime, errSettled)

		chunk, err := s.stream.Next(quietCtx)

		cancel()

		switch {
		case errors.Is(err, errSettled):
			return nil
		case err != nil:
			return fmt.Errorf("read: %w", err)
		}

		s.show(chunk)
	}
}

func (s *Sequencer) reset(ctx context.Context) error {
	slog.Debug("Resetting board", slog.String("line", s.script.ResetCommand))

	err := s.send(s.script.ResetCommand)
	if err != nil {
		return err
	}

	return s.awaitInitialPrompt(ctx)
}

func (s *Sequencer) runCommands(ctx context.Context) error {
	for _, cmd := range s.script.Commands {
		err := s.Exec(ctx, cmd)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Sequencer) setupNetwork(ctx context.Context) error {
	for _, cmd := range s.script.networkCommands() {
		err := s.Exec(ctx, cmd)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Sequencer) loadArtifacts(ctx context.Context) error {
	for name, artifact := range s.script.artifacts() {
		slog.Debug("Loading artifact",
			slog.String("artifact", name),
			slog.String("address", hexAddress(artifact.Address)))

		var err error
		if s.script.Network != nil {
			err = s.loadTFTP(ctx, artifact)
		} else {
			err = s.loadYMODEM(ctx, artifact)
		}

		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

func (s *Sequencer) loadTFTP(ctx context.Context, artifact *Artifact) error {
	return s.Exec(ctx, Command{
		Line:    "tftpboot " + hexAddress(artifact.Address) + " " + artifact.name(),
		Timeout: s.script.LoadTimeout,
		Reject:  loadRejections,
	})
}

func (s *Sequencer) loadYMODEM(ctx context.Context, artifact *Artifact) error {
	file, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	ctx, cancel := context.WithTimeoutCause(ctx, s.script.LoadTimeout, ErrCommandTimeout)
	defer cancel()

	err = s.send("loady " + hexAddress(artifact.Address))
	if err != nil {
		return err
	}

	crc, err := s.awaitTransferStart(ctx)
	if err != nil {
		return err
	}

	sender := ymodem.NewSender(s.stream, s.target, crc)

	err = sender.Send(ctx, artifact.name(), info.Size(), file)
	if err != nil {
		return fmt.Errorf("ymodem: %w", err)
	}

	_, err = s.readUntil(ctx, []byte(s.script.Prompt))

	return err
}

// awaitTransferStart waits for the receiver's first transfer request. Only
// requests after the end of the echoed command line count.
func (s *Sequencer) awaitTransferStart(ctx context.Context) (bool, error) {
	var (
		output  []byte
		newline bool
	)

	for {
		b, err := s.stream.ReadByte(ctx)
		if err != nil {
			return false, fmt.Errorf("read: %w", err)
		}

		if newline {
			if crc, ok := ymodem.StartRequest(b); ok {
				return crc, nil
			}
		}

		s.show([]byte{b})

		output = append(output, b)
		if len(output) > maxTail {
			output = output[len(output)-maxTail:]
		}

		for _, reject := range loadRejections {
			if bytes.HasSuffix(output, []byte(reject)) {
				return false, fmt.Errorf("%w: %q", ErrLoadRejected, reject)
			}
		}

		if bytes.HasSuffix(output, []byte(s.script.Prompt)) {
			return false, fmt.Errorf("%w: prompt returned", ErrLoadRejected)
		}

		newline = newline || b == '\n'
	}
}

func (s *Sequencer) boot(_ context.Context) error {
	line, err := s.script.bootCommand()
	if err != nil {
		return err
	}

	slog.Debug("Sending boot command", slog.String("line", line))

	return s.send(line)
}
