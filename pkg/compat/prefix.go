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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/LodestoneProject/lodestone-core/pkg/helpers"
)

const umuPrefix = "umu-"

// NormalizeGameID accepts "umu-<id>" and bare "<id>" and returns the
// canonical "umu-<id>" form.
func NormalizeGameID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, umuPrefix) {
		return id
	}
	return umuPrefix + id
}

// DefaultPrefixRoot is the parent of unified prefixes when none is
// configured.
func DefaultPrefixRoot() (string, error) {
	home, err := helpers.HomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve prefix root: %w", err)
	}
	return filepath.Join(home, "Games", "umu"), nil
}

// UmuPrefixDir is the prefix of a game in unified mode.
func UmuPrefixDir(root, gameID string) string {
	return filepath.Join(root, NormalizeGameID(gameID))
}

// LegacyPrefixDir is the Proton prefix Steam keeps for a shortcut.
func LegacyPrefixDir(steamDir, shortcutID string) string {
	return filepath.Join(LegacyCompatDataDir(steamDir, shortcutID), "pfx")
}

// LegacyCompatDataDir is the STEAM_COMPAT_DATA_PATH of a shortcut.
func LegacyCompatDataDir(steamDir, shortcutID string) string {
	return filepath.Join(steamDir, "steamapps", "compatdata", shortcutID)
}
