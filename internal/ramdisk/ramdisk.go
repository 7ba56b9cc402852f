// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ramdisk

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
)

// ErrUnsupportedType is returned for entries that are neither directories,
// regular files nor symbolic links.
var ErrUnsupportedType = errors.New("unsupported file type")

// Pack writes all entries of fsys as cpio archive to w. Entries are written
// in lexical order, so directories precede their content.
func Pack(fsys fs.FS, w io.Writer) error {
	archive := newWriter(w)

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// The archive root is the root of the ramdisk.
		if path == "." {
			return nil
		}

		return packEntry(archive, fsys, path, entry)
	})
	if err != nil {
		return err
	}

	return archive.close()
}

func packEntry(archive *writer, fsys fs.FS, path string, entry fs.DirEntry) error {
	switch entry.Type() {
	case fs.ModeDir:
		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("read info: %w", err)
		}

		return archive.writeDirectory(path, info.Mode().Perm())
	case fs.ModeSymlink:
		target, err := fs.ReadLink(fsys, path)
		if err != nil {
			return fmt.Errorf("read link: %w", err)
		}

		return archive.writeLink(path, target)
	case 0:
		file, err := fsys.Open(path)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer file.Close()

		return archive.writeRegular(path, file)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, path)
	}
}

// WriteTempFile packs the directory into a new temporary file and returns its
// path. It is the caller's responsibility to remove the file when it is no
// longer needed.
func WriteTempFile(fsys fs.FS, dir string) (string, error) {
	file, err := os.CreateTemp(dir, "ramdisk-*.cpio")
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	err = Pack(fsys, file)
	if err == nil {
		err = file.Close()
	} else {
		_ = file.Close()
	}

	if err != nil {
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("write %s: %w", file.Name(), err)
	}

	slog.Debug("Ramdisk written", slog.String("path", file.Name()))

	return file.Name(), nil
}
