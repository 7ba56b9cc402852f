// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// DefaultBaudRate is used if no baud rate is given.
const DefaultBaudRate = 115200

var baudRates = map[int]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
	1500000: unix.B1500000,
	3000000: unix.B3000000,
}

// SerialSpec describes a serial device connection.
type SerialSpec struct {
	// Path to the device, like "/dev/ttyUSB0".
	Path string

	// BaudRate of the line. [DefaultBaudRate] is used if 0.
	BaudRate int
}

// Serial is a [Transport] on a serial device configured as raw 8N1 line
// without flow control.
type Serial struct {
	file     *os.File
	baudRate int

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens and configures the serial device described by spec.
func OpenSerial(spec SerialSpec) (*Serial, error) {
	baudRate := spec.BaudRate
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	speed, exists := baudRates[baudRate]
	if !exists {
		return nil, &OpenError{
			Name: spec.Path,
			Err:  fmt.Errorf("%w: %d", ErrUnsupportedBaudRate, baudRate),
		}
	}

	// Open non-blocking so the file is registered with the runtime poller
	// and a concurrent Close unblocks a pending Read.
	fd, err := unix.Open(
		spec.Path,
		unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC,
		0,
	)
	if err != nil {
		return nil, &OpenError{Name: spec.Path, Err: err}
	}

	err = configureRaw(fd, speed)
	if err != nil {
		_ = unix.Close(fd)
		return nil, &OpenError{Name: spec.Path, Err: err}
	}

	slog.Debug("Serial device opened",
		slog.String("path", spec.Path),
		slog.Int("baud_rate", baudRate))

	return &Serial{
		file:     os.NewFile(uintptr(fd), spec.Path),
		baudRate: baudRate,
	}, nil
}

func configureRaw(fd int, speed uint32) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		if errors.Is(err, unix.ENOTTY) {
			return ErrNotATerminal
		}

		return fmt.Errorf("get termios: %w", err)
	}

	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS | unix.CBAUD
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | speed
	termios.Ispeed = speed
	termios.Ospeed = speed
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	err = unix.IoctlSetTermios(fd, unix.TCSETS, termios)
	if err != nil {
		return fmt.Errorf("set termios: %w", err)
	}

	return nil
}

// Read implements [io.Reader].
func (s *Serial) Read(b []byte) (int, error) {
	n, err := s.file.Read(b)
	return n, wrapIOError("read", err, s.closed.Load())
}

// Write implements [io.Writer].
func (s *Serial) Write(b []byte) (int, error) {
	n, err := s.file.Write(b)
	return n, wrapIOError("write", err, s.closed.Load())
}

// Close closes the device. Pending reads return [ErrClosed].
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.file.Close()
	})

	return s.closeErr
}

// String implements [fmt.Stringer].
func (s *Serial) String() string {
	return "serial " + s.file.Name() + "@" + strconv.Itoa(s.baudRate)
}
