// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package netboot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pin/tftp/v3"
	"golang.org/x/sync/errgroup"
)

// DefaultAddr is the TFTP listen address used if none is set.
const DefaultAddr = ":69"

// DefaultTimeout is the per-packet retransmission timeout.
const DefaultTimeout = 5 * time.Second

// Server serves the files of a directory read-only via TFTP.
type Server struct {
	// Dir is the root directory. Requests can not escape it.
	Dir string

	// Addr is the UDP address to listen on. Defaults to [DefaultAddr].
	Addr string

	// Timeout is the per-packet timeout. Defaults to [DefaultTimeout].
	Timeout time.Duration

	mu     sync.Mutex
	server *tftp.Server
	conn   *net.UDPConn
	root   *os.Root
	group  errgroup.Group
	stop   func() bool
}

// Start opens the root directory and starts serving in the background. The
// server is shut down when ctx is cancelled or [Server.Close] is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return ErrServerRunning
	}

	addr := s.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	root, err := os.OpenRoot(s.Dir)
	if err != nil {
		return fmt.Errorf("open root: %w", err)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		_ = root.Close()
		return fmt.Errorf("resolve: %w", err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		_ = root.Close()
		return fmt.Errorf("listen: %w", err)
	}

	s.root = root
	s.conn = conn
	s.server = tftp.NewServer(s.handleRead, handleWrite)
	s.server.SetTimeout(timeout)

	server := s.server

	s.group.Go(func() error {
		return server.Serve(conn)
	})

	s.stop = context.AfterFunc(ctx, func() {
		_ = s.Close()
	})

	slog.Debug("TFTP server started",
		slog.String("dir", s.Dir),
		slog.String("addr", conn.LocalAddr().String()))

	return nil
}

// LocalAddr returns the address the server listens on. It is nil if the
// server is not running.
func (s *Server) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	return s.conn.LocalAddr()
}

// Close shuts the server down and waits for running transfers to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	s.stop()
	s.server.Shutdown()

	err := s.group.Wait()

	_ = s.root.Close()

	s.server = nil
	s.conn = nil
	s.root = nil

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

func (s *Server) handleRead(filename string, rf io.ReaderFrom) error {
	name := strings.TrimLeft(filename, "/")

	logger := slog.With(slog.String("file", name))

	file, err := s.root.Open(name)
	if err != nil {
		logger.Warn("TFTP read request rejected", slog.Any("error", err))
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	if transfer, ok := rf.(tftp.OutgoingTransfer); ok {
		transfer.SetSize(info.Size())
	}

	n, err := rf.ReadFrom(file)
	if err != nil {
		logger.Warn("TFTP transfer failed", slog.Any("error", err))
		return err
	}

	logger.Debug("TFTP transfer complete", slog.Int64("bytes", n))

	return nil
}

func handleWrite(filename string, _ io.WriterTo) error {
	slog.Warn("TFTP write request rejected", slog.String("file", filename))
	return ErrWriteNotSupported
}
