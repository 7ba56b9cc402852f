// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ymodem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"
)

// Protocol control bytes.
const (
	SOH byte = 0x01
	STX byte = 0x02
	EOT byte = 0x04
	ACK byte = 0x06
	NAK byte = 0x15
	CAN byte = 0x18
	EOF byte = 0x1a

	// CRCRequest is sent by the receiver to request CRC mode.
	CRCRequest byte = 'C'
)

const (
	// ShortBlockSize is the payload size of SOH blocks.
	ShortBlockSize = 128

	// LongBlockSize is the payload size of STX blocks.
	LongBlockSize = 1024

	// DefaultRetries is the number of attempts per block.
	DefaultRetries = 10

	// DefaultResponseTimeout is the time to wait for each receiver
	// response.
	DefaultResponseTimeout = 5 * time.Second
)

var errNak = errors.New("negative acknowledge")

// ByteReader reads single bytes and respects the context's deadline.
type ByteReader interface {
	ReadByte(ctx context.Context) (byte, error)
}

// StartRequest reports if b is a receiver's request to start a transfer and
// if it requests CRC mode.
func StartRequest(b byte) (crc bool, ok bool) {
	switch b {
	case CRCRequest:
		return true, true
	case NAK:
		return false, true
	default:
		return false, false
	}
}

// Sender sends a single file to a YMODEM receiver.
type Sender struct {
	reader ByteReader
	writer io.Writer
	crc    bool

	// Retries is the number of attempts per block.
	Retries int

	// ResponseTimeout is the time to wait for each receiver response.
	ResponseTimeout time.Duration
}

// NewSender creates a [Sender] for a receiver that already sent its initial
// start request. crc is the mode the receiver requested, as returned by
// [StartRequest].
func NewSender(reader ByteReader, writer io.Writer, crc bool) *Sender {
	return &Sender{
		reader:          reader,
		writer:          writer,
		crc:             crc,
		Retries:         DefaultRetries,
		ResponseTimeout: DefaultResponseTimeout,
	}
}

// Send transfers size bytes read from data as file with the given name and
// ends the batch.
func (s *Sender) Send(
	ctx context.Context,
	name string,
	size int64,
	data io.Reader,
) error {
	header := make([]byte, 0, ShortBlockSize)
	header = append(header, name...)
	header = append(header, 0)
	header = strconv.AppendInt(header, size, 10)
	header = append(header, 0)

	if len(header) > ShortBlockSize {
		return fmt.Errorf("%w: %s", ErrNameTooLong, name)
	}

	err := s.sendBlock(ctx, 0, header, 0)
	if err != nil {
		return err
	}

	err = s.waitStart(ctx)
	if err != nil {
		return err
	}

	sent, err := s.sendData(ctx, data)
	if err != nil {
		return err
	}

	err = s.endTransmission(ctx)
	if err != nil {
		return err
	}

	// An empty header block ends the batch.
	err = s.waitStart(ctx)
	if err != nil {
		return err
	}

	err = s.sendBlock(ctx, 0, nil, 0)
	if err != nil {
		return err
	}

	slog.Debug("YMODEM transfer complete",
		slog.String("name", name),
		slog.Int64("bytes", sent))

	return nil
}

func (s *Sender) sendData(ctx context.Context, data io.Reader) (int64, error) {
	var (
		block byte = 1
		sent  int64
		buf   = make([]byte, LongBlockSize)
	)

	for {
		n, err := io.ReadFull(data, buf)
		if n > 0 {
			sendErr := s.sendBlock(ctx, block, buf[:n], EOF)
			if sendErr != nil {
				return sent, sendErr
			}

			// Block numbers wrap around.
			block++
			sent += int64(n)
		}

		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return sent, nil
		case err != nil:
			return sent, fmt.Errorf("read data: %w", err)
		}
	}
}

// packet assembles a complete block with header and checksum.
func (s *Sender) packet(number byte, data []byte, pad byte) []byte {
	marker, size := SOH, ShortBlockSize
	if len(data) > ShortBlockSize {
		marker, size = STX, LongBlockSize
	}

	packet := make([]byte, 3, 3+size+2)
	packet[0], packet[1], packet[2] = marker, number, ^number

	packet = append(packet, data...)
	for len(packet) < 3+size {
		packet = append(packet, pad)
	}

	payload := packet[3:]

	if s.crc {
		crc := CRC16(payload)
		packet = append(packet, byte(crc>>8), byte(crc))
	} else {
		packet = append(packet, checksum(payload))
	}

	return packet
}

func (s *Sender) sendBlock(
	ctx context.Context,
	number byte,
	data []byte,
	pad byte,
) error {
	packet := s.packet(number, data, pad)

	var lastErr error

	for attempt := range s.Retries {
		_, err := s.writer.Write(packet)
		if err != nil {
			return &BlockError{Block: number, Err: err}
		}

		err = s.waitAck(ctx)
		if err == nil {
			return nil
		}

		if !retryable(err) {
			return &BlockError{Block: number, Err: err}
		}

		slog.Debug("YMODEM block not acknowledged",
			slog.Int("block", int(number)),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))

		lastErr = err
	}

	return &BlockError{
		Block: number,
		Err:   fmt.Errorf("%w: %w", ErrTooManyRetries, lastErr),
	}
}

func (s *Sender) endTransmission(ctx context.Context) error {
	var lastErr error

	for range s.Retries {
		_, err := s.writer.Write([]byte{EOT})
		if err != nil {
			return fmt.Errorf("write EOT: %w", err)
		}

		err = s.waitAck(ctx)
		if err == nil {
			return nil
		}

		if !retryable(err) {
			return fmt.Errorf("EOT: %w", err)
		}

		lastErr = err
	}

	return fmt.Errorf("EOT: %w: %w", ErrTooManyRetries, lastErr)
}

// waitAck reads until the receiver acknowledges or rejects the last
// transmission. Unrelated bytes are skipped.
func (s *Sender) waitAck(ctx context.Context) error {
	cancels := 0

	for {
		b, err := s.readByte(ctx)
		if err != nil {
			return err
		}

		switch b {
		case ACK:
			return nil
		case NAK:
			return errNak
		case CAN:
			cancels++
			if cancels > 1 {
				return ErrCanceled
			}

			continue
		}

		cancels = 0
	}
}

// waitStart reads until the receiver requests the next transfer.
func (s *Sender) waitStart(ctx context.Context) error {
	for timeouts := 0; timeouts < s.Retries; {
		b, err := s.readByte(ctx)
		if err != nil {
			if errors.Is(err, ErrAckTimeout) {
				timeouts++
				continue
			}

			return err
		}

		if crc, ok := StartRequest(b); ok {
			s.crc = crc
			return nil
		}
	}

	return fmt.Errorf("wait for start: %w", ErrTooManyRetries)
}

func (s *Sender) readByte(ctx context.Context) (byte, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, s.ResponseTimeout, ErrAckTimeout)
	defer cancel()

	b, err := s.reader.ReadByte(ctx)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	return b, nil
}

func retryable(err error) bool {
	return errors.Is(err, errNak) || errors.Is(err, ErrAckTimeout)
}
