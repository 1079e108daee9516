// Lodestone Core
// Copyright (c) 2026 The Lodestone Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Lodestone Core.
//
// Lodestone Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Lodestone Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Lodestone Core.  If not, see <http://www.gnu.org/licenses/>.

package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

var errNoSymlinks = errors.New("filesystem does not support symlinks")

// copyTree copies src to dst. Symlinks are recreated as links, never
// followed. dst must not exist.
func copyTree(ctx context.Context, fs afero.Fs, src, dst string) error {
	//nolint:wrapcheck // walk errors are wrapped by the caller
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch mode := info.Mode(); {
		case mode&os.ModeSymlink != 0:
			return copySymlink(fs, path, target)
		case mode.IsDir():
			return fs.MkdirAll(target, mode.Perm()|0o700)
		case mode.IsRegular():
			return copyFile(fs, path, target, mode.Perm())
		default:
			// sockets and devices have no place in a prefix
			return nil
		}
	})
}

func copySymlink(fs afero.Fs, src, dst string) error {
	reader, ok := fs.(afero.LinkReader)
	linker, ok2 := fs.(afero.Linker)
	if !ok || !ok2 {
		return fmt.Errorf("%w: %s", errNoSymlinks, src)
	}
	link, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return fmt.Errorf("failed to read link %s: %w", src, err)
	}
	if err := linker.SymlinkIfPossible(link, dst); err != nil {
		return fmt.Errorf("failed to create link %s: %w", dst, err)
	}
	return nil
}

func copyFile(fs afero.Fs, src, dst string, perm os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
