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

// Package migrate moves games from the legacy Proton prefix layout to
// umu-launcher prefixes.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/api/notifications"
	"github.com/LodestoneProject/lodestone-core/pkg/compat"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var ErrTargetNotEmpty = errors.New("target prefix already exists and is not empty")

const stagingSuffix = ".migrating"

// Result reports a migration. PrefixPath is set on success.
type Result struct {
	Error      string `json:"error,omitempty"`
	PrefixPath string `json:"prefixPath,omitempty"`
	Success    bool   `json:"success"`
}

func failed(err error) Result {
	return Result{Error: err.Error()}
}

type Options struct {
	Fs            afero.Fs
	Store         *library.Store
	Notifications chan<- models.Notification
	// Supported overrides the platform check.
	Supported  func() bool
	PrefixRoot string
	SteamDir   string
}

// Coordinator is the only writer that switches a record to the unified
// launch mode.
type Coordinator struct {
	opts Options
}

//nolint:gocritic // options struct copied on purpose
func NewCoordinator(opts Options) *Coordinator {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Supported == nil {
		opts.Supported = compat.Supported
	}
	return &Coordinator{opts: opts}
}

// MigrateToUmu moves appID to umu-launcher, copying the legacy prefix of
// shortcut legacyID when there is one. An empty legacyID falls back to
// the shortcut id stored in the record. The record is only changed when
// the whole migration succeeds.
func (c *Coordinator) MigrateToUmu(ctx context.Context, appID int, legacyID string) Result {
	if !c.opts.Supported() {
		return c.fail(appID, "", compat.ErrUnsupportedPlatform)
	}
	rec, err := c.opts.Store.Load(appID)
	if err != nil {
		return c.fail(appID, "", err)
	} else if rec == nil {
		return c.fail(appID, "", fmt.Errorf("%w: %d", library.ErrNotFound, appID))
	}

	if !rec.LegacyMode && rec.LaunchMode == library.ModeUnifiedCompat && rec.Umu != nil &&
		rec.Umu.WinePrefixPath != "" {
		return Result{Success: true, PrefixPath: rec.Umu.WinePrefixPath}
	}

	umu := desiredConfig(rec)
	if umu.WinePrefixPath == "" {
		root, err := c.prefixRoot()
		if err != nil {
			return c.fail(appID, rec.Name, err)
		}
		umu.WinePrefixPath = compat.UmuPrefixDir(root, umu.UmuID)
	}
	target := umu.WinePrefixPath

	if legacyID == "" {
		legacyID = rec.LegacyShortcutID
	}
	source := ""
	if legacyID != "" && c.opts.SteamDir != "" {
		source = compat.LegacyPrefixDir(c.opts.SteamDir, legacyID)
	}

	copied := false
	if ok, _ := afero.DirExists(c.opts.Fs, source); source == "" || !ok {
		log.Info().Int("appID", appID).Str("prefix", target).Msg("no legacy prefix, starting with a fresh prefix")
		if err := c.opts.Fs.MkdirAll(target, 0o750); err != nil {
			return c.fail(appID, rec.Name, fmt.Errorf("failed to create prefix: %w", err))
		}
	} else {
		if err := c.copyPrefix(ctx, source, target); err != nil {
			return c.fail(appID, rec.Name, err)
		}
		copied = true
	}

	_, err = c.opts.Store.Update(appID, func(r *library.Record) error {
		r.Umu = umu
		r.LegacyMode = false
		r.LaunchMode = library.ModeUnifiedCompat
		return nil
	})
	if err != nil {
		if copied {
			if rmErr := c.opts.Fs.RemoveAll(target); rmErr != nil {
				log.Warn().Err(rmErr).Str("path", target).Msg("failed to remove copied prefix")
			}
		}
		return c.fail(appID, rec.Name, fmt.Errorf("failed to save migrated record: %w", err))
	}

	log.Info().Int("appID", appID).Str("prefix", target).Msg("migrated to umu-launcher")
	notifications.Success(c.opts.Notifications, fmt.Sprintf("Migrated %s to umu-launcher", displayName(rec)))
	return Result{Success: true, PrefixPath: target}
}

// desiredConfig returns the record's launcher config, synthesizing one
// when missing, with DLL overrides carried over from the legacy setup.
func desiredConfig(rec *library.Record) *library.UmuConfig {
	umu := &library.UmuConfig{UmuID: library.DefaultUmuID(rec.AppID)}
	if rec.Umu != nil {
		cp := *rec.Umu
		umu = &cp
		if umu.UmuID == "" {
			umu.UmuID = library.DefaultUmuID(rec.AppID)
		}
	}
	umu.UmuID = compat.NormalizeGameID(umu.UmuID)
	overrides := compat.MergeOverrides(
		umu.DllOverrides,
		compat.OverridesFromArgs(rec.LaunchArguments),
		compat.OverridesFromEnv(rec.LaunchEnv),
	)
	if len(overrides) > 0 {
		umu.DllOverrides = overrides
	}
	return umu
}

func (c *Coordinator) prefixRoot() (string, error) {
	if c.opts.PrefixRoot != "" {
		return c.opts.PrefixRoot, nil
	}
	return compat.DefaultPrefixRoot()
}

// copyPrefix copies into a staging dir next to target and renames it into
// place, so target is either absent or complete.
func (c *Coordinator) copyPrefix(ctx context.Context, source, target string) error {
	fs := c.opts.Fs
	if exists, _ := afero.Exists(fs, target); exists {
		empty, err := afero.IsEmpty(fs, target)
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", target, err)
		}
		if !empty {
			return fmt.Errorf("%w: %s", ErrTargetNotEmpty, target)
		}
	}

	staging := target + stagingSuffix
	if err := fs.RemoveAll(staging); err != nil {
		return fmt.Errorf("failed to clear staging dir: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create prefix root: %w", err)
	}

	log.Info().Str("from", source).Str("to", target).Msg("copying legacy prefix")
	if err := copyTree(ctx, fs, source, staging); err != nil {
		if rmErr := fs.RemoveAll(staging); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", staging).Msg("failed to remove staging dir")
		}
		return fmt.Errorf("failed to copy prefix: %w", err)
	}

	if err := fs.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = fs.RemoveAll(staging)
		return fmt.Errorf("failed to replace empty prefix: %w", err)
	}
	if err := fs.Rename(staging, target); err != nil {
		_ = fs.RemoveAll(staging)
		return fmt.Errorf("failed to move prefix into place: %w", err)
	}
	return nil
}

func (c *Coordinator) fail(appID int, name string, err error) Result {
	log.Error().Err(err).Int("appID", appID).Msg("migration failed")
	if name == "" {
		name = fmt.Sprintf("game %d", appID)
	}
	notifications.Error(c.opts.Notifications, fmt.Sprintf("Could not migrate %s: %v", name, err))
	return failed(err)
}

func displayName(rec *library.Record) string {
	if rec.Name != "" {
		return rec.Name
	}
	return fmt.Sprintf("game %d", rec.AppID)
}
