// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ramdisk

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/cavaliergopher/cpio"
)

const dirLinks = 2

// writer writes archive entries.
type writer struct {
	archive *cpio.Writer
}

func newWriter(w io.Writer) *writer {
	return &writer{cpio.NewWriter(w)}
}

// close writes the trailer. Flush is called by the underlying closer.
func (w *writer) close() error {
	err := w.archive.Close()
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

func (w *writer) writeHeader(hdr *cpio.Header) error {
	err := w.archive.WriteHeader(hdr)
	if err != nil {
		return fmt.Errorf("write header for %s: %w", hdr.Name, err)
	}

	return nil
}

func (w *writer) writeDirectory(path string, perm fs.FileMode) error {
	return w.writeHeader(&cpio.Header{
		Name:  path,
		Mode:  cpio.TypeDir | cpio.FileMode(perm),
		Links: dirLinks,
	})
}

// writeLink writes a symbolic link. Its body is the target path.
func (w *writer) writeLink(path, target string) error {
	err := w.writeHeader(&cpio.Header{
		Name: path,
		Mode: cpio.TypeSymlink | cpio.ModePerm,
		Size: int64(len(target)),
	})
	if err != nil {
		return err
	}

	_, err = io.WriteString(w.archive, target)
	if err != nil {
		return fmt.Errorf("write body for %s: %w", path, err)
	}

	return nil
}

func (w *writer) writeRegular(path string, source fs.File) error {
	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("read info: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, path)
	}

	hdr, err := cpio.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("create header: %w", err)
	}

	hdr.Name = path

	err = w.writeHeader(hdr)
	if err != nil {
		return err
	}

	_, err = io.Copy(w.archive, source)
	if err != nil {
		return fmt.Errorf("write body for %s: %w", path, err)
	}

	return nil
}
