// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

// ProcessSpec describes a child process whose standard streams are used as
// the target console.
type ProcessSpec struct {
	// Path to the executable.
	Path string

	// Args are the arguments without the executable name.
	Args []string

	// Env is the environment of the process. If nil, the current process's
	// environment is used.
	Env []string

	// Dir is the working directory. If empty, the current one is used.
	Dir string

	// Stderr receives the process's standard error. Discarded if nil.
	Stderr io.Writer
}

// Process is a [Transport] connected to the standard input and output of a
// child process.
type Process struct {
	cmd    *exec.Cmd
	stdin  *os.File
	stdout *os.File

	// done is closed once the process has been reaped.
	done    chan struct{}
	waitErr error

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// OpenProcess starts the process described by spec.
//
// The process is killed if ctx is cancelled.
func OpenProcess(ctx context.Context, spec ProcessSpec) (*Process, error) {
	stdinReader, stdinWriter, err := os.Pipe()
	if err != nil {
		return nil, &OpenError{Name: spec.Path, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdoutReader, stdoutWriter, err := os.Pipe()
	if err != nil {
		_ = stdinReader.Close()
		_ = stdinWriter.Close()

		return nil, &OpenError{Name: spec.Path, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Stdin = stdinReader
	cmd.Stdout = stdoutWriter
	cmd.Stderr = spec.Stderr
	cmd.Env = spec.Env
	cmd.Dir = spec.Dir

	err = cmd.Start()

	// The child holds its own copies now. Closing the parent's copies of the
	// child ends makes reads return EOF once the child exits.
	_ = stdinReader.Close()
	_ = stdoutWriter.Close()

	if err != nil {
		_ = stdinWriter.Close()
		_ = stdoutReader.Close()

		return nil, &OpenError{Name: spec.Path, Err: err}
	}

	slog.Debug("Process started",
		slog.String("command", cmd.String()),
		slog.Int("pid", cmd.Process.Pid))

	process := &Process{
		cmd:    cmd,
		stdin:  stdinWriter,
		stdout: stdoutReader,
		done:   make(chan struct{}),
	}

	go process.wait()

	return process, nil
}

func (p *Process) wait() {
	defer close(p.done)

	p.waitErr = p.cmd.Wait()

	slog.Debug("Process exited",
		slog.Int("pid", p.cmd.Process.Pid),
		slog.Int("exit_code", p.cmd.ProcessState.ExitCode()))
}

// Read implements [io.Reader]. It returns [io.EOF] once the process closed
// its standard output.
func (p *Process) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	return n, wrapIOError("read", err, p.closed.Load())
}

// Write implements [io.Writer].
func (p *Process) Write(b []byte) (int, error) {
	n, err := p.stdin.Write(b)
	return n, wrapIOError("write", err, p.closed.Load())
}

// Close kills the process if it is still running, closes the pipes and
// waits for the process to be reaped.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)

		select {
		case <-p.done:
		default:
			err := p.cmd.Process.Kill()
			if err != nil && !errors.Is(err, os.ErrProcessDone) {
				p.closeErr = fmt.Errorf("kill: %w", err)
			}
		}

		p.closeErr = errors.Join(p.closeErr, p.stdin.Close(), p.stdout.Close())

		<-p.done
	})

	return p.closeErr
}

// ExitStatus returns the exit code of the process and if it has exited yet.
// The exit code is -1 if the process was terminated by a signal.
func (p *Process) ExitStatus() (int, bool) {
	select {
	case <-p.done:
		return p.cmd.ProcessState.ExitCode(), true
	default:
		return 0, false
	}
}

// Wait blocks until the process exited and returns the error of
// [exec.Cmd.Wait].
func (p *Process) Wait() error {
	<-p.done
	return p.waitErr
}

// String implements [fmt.Stringer].
func (p *Process) String() string {
	return "process " + strings.Join(p.cmd.Args, " ")
}
