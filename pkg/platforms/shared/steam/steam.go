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

// Package steam integrates with a local Steam install for the legacy
// compatibility mode: non-Steam shortcuts, their Proton prefixes and the
// compatibility tool Steam assigns to them.
package steam

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers/command"
	"github.com/rs/zerolog/log"
)

// FlatpakSteamID is the Flatpak app ID for Steam.
const FlatpakSteamID = "com.valvesoftware.Steam"

// rootMarkers are entries every initialized Steam root contains at least
// one of.
var rootMarkers = []string{"steamapps", "SteamApps", "userdata", filepath.Join("config", "config.vdf")}

type Options struct {
	// FallbackPath is returned when detection finds nothing.
	FallbackPath string
	// Home replaces the user's home directory in the default locations.
	Home string
	// ExtraPaths are searched after the native locations.
	ExtraPaths []string
	// CheckFlatpak adds the Flatpak Steam location to the search.
	CheckFlatpak bool
}

// Client finds Steam and registers shortcuts with it.
type Client struct {
	cmd  command.Executor
	opts Options
}

func NewClient(opts Options) *Client {
	return NewClientWithExecutor(opts, &command.RealExecutor{})
}

func NewClientWithExecutor(opts Options, cmd command.Executor) *Client {
	return &Client{opts: opts, cmd: cmd}
}

func candidateDirs(home string, opts Options) []string {
	paths := []string{
		filepath.Join(home, ".steam", "steam"),
		filepath.Join(home, ".local", "share", "Steam"),
	}
	paths = append(paths, opts.ExtraPaths...)
	if opts.CheckFlatpak {
		paths = append(paths, filepath.Join(home, ".var", "app", FlatpakSteamID, ".steam", "steam"))
	}
	return append(paths,
		filepath.Join(home, "snap", "steam", "common", ".steam", "steam"),
		"/usr/games/steam",
		"/opt/steam",
	)
}

// IsSteamRoot reports whether dir looks like an initialized Steam root.
func IsSteamRoot(dir string) bool {
	return slices.ContainsFunc(rootMarkers, func(marker string) bool {
		_, err := os.Stat(filepath.Join(dir, marker))
		return err == nil
	})
}

// FindSteamDir locates the Steam installation directory. A configured
// directory wins whenever it exists; detected ones must look like a Steam
// root. Symlinked locations resolve to their target.
func (c *Client) FindSteamDir(cfg *config.Instance) string {
	if dir := cfg.SteamDir(); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			log.Debug().Msgf("using configured Steam directory: %s", dir)
			return dir
		}
		log.Warn().Msgf("configured Steam directory not found: %s", dir)
	}

	home := c.opts.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			log.Warn().Err(err).Msg("failed to get user home directory")
			return c.opts.FallbackPath
		}
	}

	for _, path := range candidateDirs(home, c.opts) {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil || !IsSteamRoot(resolved) {
			continue
		}
		log.Debug().Str("path", path).Str("resolved", resolved).Msg("found Steam installation")
		return resolved
	}

	log.Debug().Msgf("Steam detection failed, using fallback: %q", c.opts.FallbackPath)
	return c.opts.FallbackPath
}

// FindSteamAppsDir finds the steamapps directory of a Steam root. Old
// installs use a capitalized name.
func FindSteamAppsDir(steamDir string) string {
	for _, candidate := range []string{"steamapps", "SteamApps", filepath.Join("steam", "steamapps")} {
		path := filepath.Join(steamDir, candidate)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	return filepath.Join(steamDir, "steamapps")
}
