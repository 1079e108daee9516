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

package steam

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/LodestoneProject/lodestone-core/internal/vdfbinary"
	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog/log"
)

// ErrShortcutNotFound is returned when no shortcut matches a name.
var ErrShortcutNotFound = errors.New("steam shortcut not found")

// fuzzyThreshold is the minimum Jaro-Winkler similarity for a name match.
const fuzzyThreshold = 0.9

// ReadShortcuts returns the shortcuts of every Steam user.
func ReadShortcuts(steamDir string) ([]vdfbinary.Shortcut, error) {
	userdataDir := filepath.Join(steamDir, "userdata")
	userDirs, err := os.ReadDir(userdataDir)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", userdataDir).Msg("Steam userdata directory not found")
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read Steam userdata: %w", err)
	}

	var all []vdfbinary.Shortcut
	for _, userDir := range userDirs {
		if !userDir.IsDir() {
			continue
		}
		shortcutsPath := filepath.Join(userdataDir, userDir.Name(), "config", "shortcuts.vdf")
		//nolint:gosec // Steam config file
		data, err := os.ReadFile(shortcutsPath)
		if errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			log.Warn().Err(err).Str("path", shortcutsPath).Msg("error reading shortcuts.vdf")
			continue
		}
		shortcuts, err := vdfbinary.ParseShortcuts(bytes.NewReader(data))
		if err != nil {
			log.Warn().Err(err).Str("path", shortcutsPath).Msg("error parsing shortcuts.vdf")
			continue
		}
		all = append(all, shortcuts...)
	}
	return all, nil
}

// FindShortcutID returns the app id of the shortcut called name. Exact
// case-insensitive matches win over the closest fuzzy match.
func FindShortcutID(steamDir, name string) (string, error) {
	shortcuts, err := ReadShortcuts(steamDir)
	if err != nil {
		return "", err
	}
	sc, ok := matchShortcut(shortcuts, name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrShortcutNotFound, name)
	}
	return strconv.FormatUint(uint64(sc.AppID), 10), nil
}

func matchShortcut(shortcuts []vdfbinary.Shortcut, name string) (vdfbinary.Shortcut, bool) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return vdfbinary.Shortcut{}, false
	}

	var best vdfbinary.Shortcut
	var bestScore float32
	for _, sc := range shortcuts {
		candidate := strings.ToLower(strings.TrimSpace(sc.AppName))
		if candidate == query {
			return sc, true
		}
		score := edlib.JaroWinklerSimilarity(query, candidate)
		if score > bestScore {
			best, bestScore = sc, score
		}
	}
	if bestScore >= fuzzyThreshold {
		log.Debug().Str("query", name).Str("match", best.AppName).Float32("score", bestScore).
			Msg("fuzzy matched Steam shortcut")
		return best, true
	}
	return vdfbinary.Shortcut{}, false
}
