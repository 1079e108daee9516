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
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// overrideMode is the load order written for every override: native
// first, then builtin.
const overrideMode = "n,b"

// ParseOverrides extracts DLL names from a WINEDLLOVERRIDES value such as
// "d3d9=n,b;dinput8,xinput1_3=n". Load modes are dropped.
func ParseOverrides(value string) []string {
	var names []string
	for _, entry := range strings.Split(value, ";") {
		left, _, _ := strings.Cut(entry, "=")
		for _, name := range strings.Split(left, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// OverridesFromEnv parses the override variable of env, if present.
func OverridesFromEnv(env map[string]string) []string {
	if v, ok := env[EnvDllOverrides]; ok {
		return ParseOverrides(v)
	}
	return nil
}

// OverridesFromArgs parses an override assignment embedded in a launch
// arguments string.
func OverridesFromArgs(launchArgs string) []string {
	parsed, err := SplitLaunchArgs(launchArgs)
	if err != nil {
		return nil
	}
	var names []string
	for _, a := range parsed.Env {
		if a.Key == EnvDllOverrides {
			names = append(names, ParseOverrides(a.Value)...)
		}
	}
	for _, a := range parsed.Reserved {
		if a.Key == EnvDllOverrides {
			names = append(names, ParseOverrides(a.Value)...)
		}
	}
	return names
}

// MergeOverrides strips ".dll" from every name and drops case-insensitive
// duplicates, keeping the first spelling seen.
func MergeOverrides(sources ...[]string) []string {
	fold := cases.Fold()
	seen := make(map[string]struct{})
	var out []string
	for _, src := range sources {
		for _, name := range src {
			name = strings.TrimSpace(name)
			if strings.EqualFold(filepath.Ext(name), ".dll") {
				name = name[:len(name)-len(".dll")]
			}
			if name == "" {
				continue
			}
			key := fold.String(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// FormatOverrides renders names as a WINEDLLOVERRIDES value.
func FormatOverrides(names []string) string {
	entries := make([]string, 0, len(names))
	for _, name := range MergeOverrides(names) {
		entries = append(entries, name+"="+overrideMode)
	}
	return strings.Join(entries, ";")
}
