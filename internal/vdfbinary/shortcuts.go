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

package vdfbinary

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

var ErrNoShortcuts = errors.New("vdf has no shortcuts map")

// Shortcut is one non-Steam game entry.
type Shortcut struct {
	AppName       string
	Exe           string
	StartDir      string
	LaunchOptions string
	AppID         uint32
}

// ParseShortcuts reads the entries of a shortcuts.vdf file in index order.
// Entries without an app id are skipped.
func ParseShortcuts(r io.Reader) ([]Shortcut, error) {
	root, err := Parse(r)
	if err != nil {
		return nil, err
	}
	entries, ok := root.GetMap("shortcuts")
	if !ok {
		return nil, ErrNoShortcuts
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})

	shortcuts := make([]Shortcut, 0, len(keys))
	for _, k := range keys {
		entry, ok := entries[k].Map()
		if !ok {
			return nil, fmt.Errorf("%w: shortcut %s is not a map", ErrCorrupted, k)
		}
		appID, ok := entry.GetUint("appid")
		if !ok {
			continue
		}
		sc := Shortcut{AppID: appID}
		sc.AppName, _ = entry.GetString("AppName")
		sc.Exe, _ = entry.GetString("Exe")
		sc.StartDir, _ = entry.GetString("StartDir")
		sc.LaunchOptions, _ = entry.GetString("LaunchOptions")
		shortcuts = append(shortcuts, sc)
	}
	return shortcuts, nil
}
