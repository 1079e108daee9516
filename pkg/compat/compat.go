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

// Package compat holds the pieces shared by everything that runs Windows
// games through Wine: prefix locations, the umu-launcher runtime, DLL
// override syntax and launch-argument parsing.
package compat

import (
	"errors"
	"runtime"
)

// ErrUnsupportedPlatform is returned where a compatibility layer is
// required but the OS cannot run one.
var ErrUnsupportedPlatform = errors.New("compatibility layer is not supported on this platform")

// Environment variables read by umu-run and Proton.
const (
	EnvGameID           = "GAMEID"
	EnvWinePrefix       = "WINEPREFIX"
	EnvProtonPath       = "PROTONPATH"
	EnvStore            = "STORE"
	EnvDllOverrides     = "WINEDLLOVERRIDES"
	EnvCompatDataPath   = "STEAM_COMPAT_DATA_PATH"
	EnvCompatClientPath = "STEAM_COMPAT_CLIENT_INSTALL_PATH"
)

// reservedVars are owned by the launcher and never taken from a game's
// launch arguments.
var reservedVars = map[string]struct{}{
	EnvGameID:           {},
	EnvWinePrefix:       {},
	EnvProtonPath:       {},
	EnvStore:            {},
	EnvDllOverrides:     {},
	EnvCompatDataPath:   {},
	EnvCompatClientPath: {},
}

// IsReserved reports whether key is set by the launcher itself.
func IsReserved(key string) bool {
	_, ok := reservedVars[key]
	return ok
}

// Supported reports whether the current OS runs Wine prefixes.
func Supported() bool {
	return supportedOn(runtime.GOOS)
}

func supportedOn(goos string) bool {
	return goos == "linux"
}

// CheckPlatform returns ErrUnsupportedPlatform off Linux.
func CheckPlatform() error {
	if !Supported() {
		return ErrUnsupportedPlatform
	}
	return nil
}
