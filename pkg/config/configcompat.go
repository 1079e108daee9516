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

package config

import "time"

const (
	DefaultUmuReleaseURL = "https://github.com/Open-Wine-Components/umu-launcher/" +
		"releases/latest/download/umu-launcher-zipapp.tar"
	DefaultProtonVersion = "GE-Proton"
	DefaultLaunchGrace   = 3 * time.Second
)

type Compat struct {
	UmuRuntimePath string `toml:"umu_runtime_path,omitempty"`
	UmuReleaseURL  string `toml:"umu_release_url,omitempty"`
	ProtonVersion  string `toml:"proton_version,omitempty"`
	PrefixRoot     string `toml:"prefix_root,omitempty"`
	SteamDir       string `toml:"steam_dir,omitempty"`
	ShortcutTool   string `toml:"shortcut_tool,omitempty"`
	LaunchGraceMs  *int   `toml:"launch_grace_ms,omitempty"`
}

// UmuRuntimePath is an explicit umu-run path. Empty means the runtime is
// looked up in the tools dir and then on PATH.
func (c *Instance) UmuRuntimePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Compat.UmuRuntimePath
}

func (c *Instance) UmuReleaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Compat.UmuReleaseURL == "" {
		return DefaultUmuReleaseURL
	}
	return c.vals.Compat.UmuReleaseURL
}

// ProtonVersion is the PROTONPATH value used when a game config has none.
func (c *Instance) ProtonVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Compat.ProtonVersion == "" {
		return DefaultProtonVersion
	}
	return c.vals.Compat.ProtonVersion
}

// PrefixRoot overrides the parent dir of unified prefixes. Empty means
// ~/Games/umu.
func (c *Instance) PrefixRoot() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Compat.PrefixRoot
}

func (c *Instance) SteamDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Compat.SteamDir
}

// ShortcutTool is the shortcut registration executable. Empty disables
// shortcut registration.
func (c *Instance) ShortcutTool() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Compat.ShortcutTool
}

func (c *Instance) LaunchGrace() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return msOrDefault(c.vals.Compat.LaunchGraceMs, DefaultLaunchGrace)
}
