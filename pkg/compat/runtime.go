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

package compat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/LodestoneProject/lodestone-core/pkg/extract"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers/syncutil"
	"github.com/LodestoneProject/lodestone-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrRuntimeMissing is returned when umu-run is not installed and could
// not be installed.
var ErrRuntimeMissing = errors.New("umu-launcher is not installed")

const (
	runtimeDirName = "umu"
	runtimeBinary  = "umu-run"
	releaseArchive = "umu-launcher.tar"
)

// Downloader fetches a whole file.
type Downloader interface {
	DownloadFile(ctx context.Context, args httpclient.DownloadFileArgs) error
}

// Unpacker extracts an archive into a directory.
type Unpacker interface {
	Extract(ctx context.Context, kind extract.Kind, archive, outDir string) (string, error)
}

// RuntimeOptions configures where umu-run lives and where it comes from.
type RuntimeOptions struct {
	Fs         afero.Fs
	Downloader Downloader
	Unpacker   Unpacker
	// LookPath finds a system-wide install. Defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// Path is an explicit umu-run location. Automatic installs are
	// disabled when it is set.
	Path       string
	ToolsDir   string
	ReleaseURL string
}

// Runtime locates and installs the umu-launcher.
type Runtime struct {
	opts RuntimeOptions
	mu   syncutil.Mutex
}

//nolint:gocritic // options struct copied on purpose
func NewRuntime(opts RuntimeOptions) *Runtime {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	return &Runtime{opts: opts}
}

func (r *Runtime) managedPath() string {
	return filepath.Join(r.opts.ToolsDir, runtimeDirName, runtimeBinary)
}

// Path returns the umu-run executable to use. It may not exist.
func (r *Runtime) Path() string {
	if r.opts.Path != "" {
		return r.opts.Path
	}
	managed := r.managedPath()
	if ok, _ := afero.Exists(r.opts.Fs, managed); ok {
		return managed
	}
	if p, err := r.opts.LookPath(runtimeBinary); err == nil {
		return p
	}
	return managed
}

// Installed reports whether Path points at an existing file.
func (r *Runtime) Installed() bool {
	info, err := r.opts.Fs.Stat(r.Path())
	return err == nil && !info.IsDir()
}

// EnsureInstalled makes one install attempt when the runtime is missing.
func (r *Runtime) EnsureInstalled(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Installed() {
		return nil
	}
	if r.opts.Path != "" {
		return fmt.Errorf("%w: %s", ErrRuntimeMissing, r.opts.Path)
	}
	if r.opts.Downloader == nil || r.opts.Unpacker == nil || r.opts.ReleaseURL == "" || r.opts.ToolsDir == "" {
		return ErrRuntimeMissing
	}

	log.Info().Str("url", r.opts.ReleaseURL).Msg("installing umu-launcher")
	if err := r.opts.Fs.MkdirAll(r.opts.ToolsDir, 0o750); err != nil {
		return fmt.Errorf("failed to create tools dir: %w", err)
	}
	archive := filepath.Join(r.opts.ToolsDir, releaseArchive)
	defer func() {
		if err := r.opts.Fs.Remove(archive); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Msg("failed to remove umu-launcher archive")
		}
	}()

	err := r.opts.Downloader.DownloadFile(ctx, httpclient.DownloadFileArgs{
		Fs:         r.opts.Fs,
		URL:        r.opts.ReleaseURL,
		OutputPath: archive,
	})
	if err != nil {
		return fmt.Errorf("%w: download failed: %w", ErrRuntimeMissing, err)
	}
	// the release archive contains a top level umu/ directory
	if _, err := r.opts.Unpacker.Extract(ctx, extract.KindTar, archive, r.opts.ToolsDir); err != nil {
		return fmt.Errorf("%w: %w", ErrRuntimeMissing, err)
	}
	if !r.Installed() {
		return fmt.Errorf("%w: %s missing from release archive", ErrRuntimeMissing, runtimeBinary)
	}
	if err := r.opts.Fs.Chmod(r.managedPath(), 0o755); err != nil { //nolint:gosec // executable
		log.Warn().Err(err).Msg("failed to mark umu-run executable")
	}
	log.Info().Str("path", r.managedPath()).Msg("umu-launcher installed")
	return nil
}
