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

package launch

import (
	"sort"

	"github.com/LodestoneProject/lodestone-core/pkg/compat"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
)

// MergeEnv layers sources from lowest to highest precedence.
func MergeEnv(sources ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			out[k] = v
		}
	}
	return out
}

// envList renders env as KEY=value entries sorted by key.
func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}
	return list
}

// dllOverrides merges the explicit list with what the legacy args and the
// env map declare.
func dllOverrides(rec *library.Record) string {
	var explicit []string
	if rec.Umu != nil {
		explicit = rec.Umu.DllOverrides
	}
	return compat.FormatOverrides(compat.MergeOverrides(
		explicit,
		compat.OverridesFromArgs(rec.LaunchArguments),
		compat.OverridesFromEnv(rec.LaunchEnv),
	))
}
