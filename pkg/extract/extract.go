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

// Package extract unpacks archives with the platform's archive tools.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/LodestoneProject/lodestone-core/pkg/helpers/command"
	"github.com/rs/zerolog/log"
)

// Kind is an archive format.
type Kind string

const (
	KindZip Kind = "zip"
	KindRar Kind = "rar"
	KindTar Kind = "tar"
)

var ErrUnknownKind = errors.New("unknown archive kind")

// KindFor guesses the archive kind from a file name.
func KindFor(path string) (Kind, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return KindZip, nil
	case strings.HasSuffix(lower, ".rar"):
		return KindRar, nil
	case strings.HasSuffix(lower, ".tar"), strings.HasSuffix(lower, ".tar.gz"),
		strings.HasSuffix(lower, ".tgz"), strings.HasSuffix(lower, ".tar.xz"):
		return KindTar, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, filepath.Base(path))
	}
}

// Extractor runs archive tools through an Executor.
type Extractor struct {
	exec command.Executor
	goos string
}

func New(exec command.Executor) *Extractor {
	return &Extractor{exec: exec, goos: runtime.GOOS}
}

// Args returns the argument vector used to unpack an archive.
func (e *Extractor) Args(kind Kind, archive, outDir string) (string, []string, error) {
	if e.goos == "windows" {
		return "7z", []string{"x", "-y", "-o" + outDir, archive}, nil
	}
	switch kind {
	case KindZip:
		return "unzip", []string{"-o", "-q", archive, "-d", outDir}, nil
	case KindRar:
		return "unrar", []string{"x", "-o+", "-idq", archive, outDir + string(filepath.Separator)}, nil
	case KindTar:
		return "tar", []string{"-xf", archive, "-C", outDir}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// Extract unpacks archive into outDir, creating it, and returns outDir.
func (e *Extractor) Extract(ctx context.Context, kind Kind, archive, outDir string) (string, error) {
	name, args, err := e.Args(kind, archive, outDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outDir, err)
	}
	log.Debug().Str("archive", archive).Str("dir", outDir).Msg("extracting archive")
	if err := e.exec.Run(ctx, name, args...); err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", filepath.Base(archive), err)
	}
	return outDir, nil
}
