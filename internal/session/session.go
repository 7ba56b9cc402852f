// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aibor/bootrun/internal/bootloader"
	"github.com/aibor/bootrun/internal/console"
	"github.com/aibor/bootrun/internal/escape"
	"github.com/aibor/bootrun/internal/monitor"
	"github.com/aibor/bootrun/internal/transport"
)

const keyboardReadSize = 256

// unitStopTimeout limits the wait for the units to stop writing during
// teardown.
const unitStopTimeout = time.Second

var errSessionEnded = errors.New("session ended")

// Keyboard is the operator's input. Cancel must unblock a pending Read and
// return true if it did so.
type Keyboard interface {
	io.Reader
	Cancel() bool
}

// Config defines the behavior of a session.
type Config struct {
	// Monitor defines the patterns the output is matched against.
	Monitor monitor.Config

	// Interactive enables forwarding of keyboard input to the target.
	Interactive bool

	// Timeout is the deadline of the whole session. No deadline if 0.
	Timeout time.Duration

	// EarlyInput is the policy for keystrokes arriving before the handoff.
	EarlyInput EarlyInput

	// PowerOffAfter issues the script's power-off command before the
	// transport is closed.
	PowerOffAfter bool
}

// Params are the inputs of [Run].
type Params struct {
	// ID identifies the session in log messages.
	ID string

	// Transport to the target. It is closed by [Run].
	Transport transport.Transport

	Config Config

	// Script drives the bootloader before monitoring starts. If nil, the
	// target is expected to boot on its own.
	Script *bootloader.Script

	// Display receives the target output byte for byte.
	Display io.Writer

	// Keyboard is the operator input. Required if interactive.
	Keyboard Keyboard
}

// session holds the state shared by the units of a single run. Each field
// is either immutable during the run or owned by a single unit.
type session struct {
	Params

	logger    *slog.Logger
	stream    *console.Stream
	sequencer *bootloader.Sequencer
	monitor   *monitor.Monitor

	// results receives the proposals of all units. Only the first one is
	// taken.
	results chan Result

	// handoff is closed once the target may be written to by the
	// keyboard forwarder.
	handoff chan struct{}
}

// Run runs a session and returns its result. The transport is closed before
// Run returns.
//
// If ctx is cancelled, the session ends with [UserExit].
func Run(ctx context.Context, params Params) Result {
	if params.Display == nil {
		params.Display = io.Discard
	}

	s := &session{
		Params:  params,
		logger:  slog.With(slog.String("session", params.ID)),
		stream:  console.NewStream(params.Transport),
		monitor: monitor.New(params.Config.Monitor),
		// Every unit proposes at most one result.
		results: make(chan Result, 3),
		handoff: make(chan struct{}),
	}

	if params.Script != nil {
		sequencer, err := bootloader.NewSequencer(
			s.stream,
			params.Transport,
			params.Display,
			*params.Script,
		)
		if err != nil {
			s.closeTransport()

			return Result{
				Outcome: TransportError,
				Err:     fmt.Errorf("%w: %w", bootloader.ErrAutomationFailed, err),
			}
		}

		s.sequencer = sequencer
	}

	if params.Config.Interactive && params.Keyboard == nil {
		s.logger.Warn("Interactive mode without keyboard, input disabled")

		s.Config.Interactive = false
	}

	return s.run(ctx)
}

func (s *session) run(ctx context.Context) Result {
	unitCtx, cancelUnits := context.WithCancelCause(ctx)
	defer cancelUnits(errSessionEnded)

	var pump, units, keyboard errgroup.Group

	pump.Go(func() error {
		s.stream.Pump(unitCtx)
		return nil
	})

	units.Go(func() error {
		s.upstream(unitCtx)
		return nil
	})

	if s.Config.Interactive {
		input := make(chan []byte)

		keyboard.Go(func() error {
			s.readKeyboard(unitCtx, input)
			return nil
		})

		units.Go(func() error {
			s.forward(unitCtx, input)
			return nil
		})
	}

	s.logger.Debug("Session started",
		slog.String("transport", s.Transport.String()),
		slog.Bool("interactive", s.Config.Interactive),
		slog.Bool("scripted_boot", s.sequencer != nil))

	result := s.decide(ctx)

	s.logger.Debug("Session outcome", slog.String("result", result.String()))

	// Teardown. Writers get a grace period to stop before the transport is
	// closed, so pending input and the power-off command are written. A
	// stalled write is only unblocked by closing the transport.
	cancelUnits(errSessionEnded)

	waitKeyboard := true
	if s.Config.Interactive && !s.Keyboard.Cancel() {
		s.logger.Warn("Keyboard input could not be cancelled")

		waitKeyboard = false
	}

	stopped := waitTimeout(&units, unitStopTimeout)
	if !stopped {
		s.logger.Warn("Writing to the target stalled, closing transport")
	}

	if stopped && s.Config.PowerOffAfter && s.sequencer != nil {
		err := s.sequencer.PowerOff()
		if err != nil {
			s.logger.Warn("Power-off failed", slog.Any("error", err))
		}
	}

	s.closeTransport()

	_ = units.Wait()
	_ = pump.Wait()

	if waitKeyboard {
		_ = keyboard.Wait()
	}

	return result
}

// waitTimeout waits for group to finish for at most timeout. It returns
// false if the group is still running.
func waitTimeout(group *errgroup.Group, timeout time.Duration) bool {
	done := make(chan struct{})

	go func() {
		_ = group.Wait()

		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// decide waits for the first of the unit results, the deadline and the
// cancellation of ctx.
func (s *session) decide(ctx context.Context) Result {
	var deadline <-chan time.Time

	if s.Config.Timeout > 0 {
		timer := time.NewTimer(s.Config.Timeout)
		defer timer.Stop()

		deadline = timer.C
	}

	select {
	case result := <-s.results:
		return result
	case <-deadline:
		return Result{Outcome: Timeout}
	case <-ctx.Done():
		return Result{Outcome: UserExit, Err: context.Cause(ctx)}
	}
}

// propose hands a result to the decision. Results proposed after the
// decision are discarded.
func (s *session) propose(ctx context.Context, result Result) {
	select {
	case s.results <- result:
	case <-ctx.Done():
	}
}

func (s *session) closeTransport() {
	err := s.Transport.Close()
	if err != nil {
		s.logger.Warn("Closing transport failed", slog.Any("error", err))
	}
}

// upstream runs the boot sequence, if any, and monitors the output
// afterwards.
func (s *session) upstream(ctx context.Context) {
	if s.sequencer != nil {
		err := s.sequencer.Run(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.propose(ctx, Result{Outcome: TransportError, Err: err})
			}

			return
		}

		s.logger.Debug("Boot sequence complete, monitoring output")
	}

	close(s.handoff)

	for {
		chunk, err := s.stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			if errors.Is(err, io.EOF) {
				err = ErrNoVerdict
			}

			s.propose(ctx, Result{Outcome: TransportError, Err: err})

			return
		}

		_, err = s.Display.Write(chunk)
		if err != nil {
			s.logger.Debug("Display write failed", slog.Any("error", err))
		}

		verdict := s.monitor.Append(chunk)

		switch verdict {
		case monitor.Success:
			s.propose(ctx, Result{Outcome: Success, Pattern: s.monitor.Match()})
			return
		case monitor.Failure:
			s.propose(ctx, Result{Outcome: Failure, Pattern: s.monitor.Match()})
			return
		}
	}
}

// readKeyboard reads operator input, detects the exit sequence and passes
// everything else on to input.
func (s *session) readKeyboard(ctx context.Context, input chan<- []byte) {
	defer close(input)

	var detector escape.Detector

	buf := make([]byte, keyboardReadSize)

	for {
		n, err := s.Keyboard.Read(buf)
		if n > 0 {
			forward, exit := detector.Process(buf[:n])
			if len(forward) > 0 {
				select {
				case input <- forward:
				case <-ctx.Done():
					return
				}
			}

			if exit {
				s.logger.Debug("Exit key sequence received")
				s.propose(ctx, Result{Outcome: UserExit})

				return
			}
		}

		if err != nil {
			if ctx.Err() == nil {
				s.logger.Debug("Keyboard input ended", slog.Any("error", err))
			}

			return
		}
	}
}

// forward writes keyboard input to the target. Input arriving before the
// handoff is queued or dropped as configured.
func (s *session) forward(ctx context.Context, input <-chan []byte) {
	var (
		pending []byte
		handoff = s.handoff
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-handoff:
			// Closed channel, stop selecting it.
			handoff = nil

			if len(pending) == 0 {
				continue
			}

			data := pending
			pending = nil

			if !s.write(ctx, data) {
				return
			}
		case data, ok := <-input:
			if !ok {
				return
			}

			// Both cases might have been ready.
			if handoff != nil && closed(handoff) {
				handoff = nil
				data = append(pending, data...)
				pending = nil
			}

			if handoff == nil {
				if !s.write(ctx, data) {
					return
				}

				continue
			}

			switch s.Config.EarlyInput {
			case DropEarlyInput:
				s.logger.Debug("Dropping input during boot sequence",
					slog.Int("bytes", len(data)))
			default:
				pending = append(pending, data...)
			}
		}
	}
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (s *session) write(ctx context.Context, data []byte) bool {
	_, err := s.Transport.Write(data)
	if err != nil {
		if ctx.Err() == nil {
			s.propose(ctx, Result{Outcome: TransportError, Err: err})
		}

		return false
	}

	return true
}
