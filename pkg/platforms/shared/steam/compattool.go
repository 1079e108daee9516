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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

var (
	ErrNoCompatTool = errors.New("no compatibility tool mapped")
	ErrNoProton     = errors.New("proton install not found")
)

// defaultMappingKey holds the compatibility tool applied to every title
// without its own mapping.
const defaultMappingKey = "0"

// CompatToolFor returns the compatibility tool name Steam uses for appID,
// falling back to the global default mapping.
func CompatToolFor(steamDir, appID string) (string, error) {
	cfg, err := readTextVDF(filepath.Join(steamDir, "config", "config.vdf"))
	if err != nil {
		return "", err
	}
	mapping, err := lookupMap(cfg, "installconfigstore", "software", "valve", "steam", "compattoolmapping")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoCompatTool, err)
	}
	for _, key := range []string{appID, defaultMappingKey} {
		entry, ok := mapping[key].(map[string]any)
		if !ok {
			continue
		}
		if name, ok := entry["name"].(string); ok && name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoCompatTool, appID)
}

// ProtonDir finds the directory holding the proton script for tool. Custom
// builds live in compatibilitytools.d under their tool name; Valve builds
// live in steamapps/common under a display name such as "Proton 9.0".
func ProtonDir(steamDir, tool string) (string, error) {
	custom := filepath.Join(steamDir, "compatibilitytools.d", tool)
	if hasProton(custom) {
		return custom, nil
	}

	common := filepath.Join(FindSteamAppsDir(steamDir), "common")
	entries, err := os.ReadDir(common)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", common).Msg("error reading steamapps/common")
	}
	want := alnumLower(tool)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(alnumLower(e.Name()), want) {
			continue
		}
		dir := filepath.Join(common, e.Name())
		if hasProton(dir) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoProton, tool)
}

func hasProton(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "proton"))
	return err == nil && !info.IsDir()
}

func alnumLower(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
