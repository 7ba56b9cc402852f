// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"fmt"
	"io"
)

// Transport is a bidirectional byte stream to a target console.
//
// Read blocks until at least one byte is available or the stream ended. After
// Close, Read returns [ErrClosed]. Close may be called multiple times and from
// any goroutine.
type Transport interface {
	io.ReadWriteCloser
	fmt.Stringer
}

var (
	_ Transport = (*Process)(nil)
	_ Transport = (*Serial)(nil)
)
