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

package helpers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/adrg/xdg"
)

// ErrNoHomeDir is returned when the user's home directory cannot be
// determined.
var ErrNoHomeDir = errors.New("home directory could not be determined")

// Dirs is the set of directories the service reads and writes.
type Dirs struct {
	Config  string
	Data    string
	Log     string
	Tools   string
	Library string
}

// DefaultDirs resolves the XDG based directory layout.
func DefaultDirs() Dirs {
	data := filepath.Join(xdg.DataHome, config.AppName)
	return Dirs{
		Config:  filepath.Join(xdg.ConfigHome, config.AppName),
		Data:    data,
		Log:     filepath.Join(xdg.StateHome, config.AppName),
		Tools:   filepath.Join(data, config.ToolsDir),
		Library: filepath.Join(data, config.LibraryDir),
	}
}

// Ensure creates every directory in d.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Config, d.Data, d.Log, d.Tools, d.Library} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// HomeDir returns the user's home directory.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", ErrNoHomeDir
	}
	return home, nil
}

// ExpandHome replaces a leading "~/" in p with the home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
