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

package redist

import (
	"path/filepath"
	"strings"
)

// genericSilentFlag is used for installers no pattern recognizes. An
// interactive installer then runs until the item timeout fires.
const genericSilentFlag = "/quiet"

// installerCommand returns the program and arguments that install the
// file at path unattended. The program is either path itself or msiexec.
func installerCommand(path string) (string, []string) {
	base := strings.ToLower(filepath.Base(path))
	has := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(base, s) {
				return true
			}
		}
		return false
	}

	switch {
	case strings.HasSuffix(base, ".msi"):
		return "msiexec", []string{"/i", path, "/qn", "/norestart"}
	case has("vcredist", "vc_redist"):
		if has("2005", "2008") {
			return path, []string{"/q"}
		}
		return path, []string{"/install", "/quiet", "/norestart"}
	case has("dxsetup", "directx", "dxwebsetup"):
		return path, []string{"/silent"}
	case has("dotnet", "ndp", "netfx"):
		return path, []string{"/q", "/norestart"}
	case has("nsis"):
		return path, []string{"/S"}
	case has("inno", "_is1"):
		return path, []string{"/VERYSILENT", "/SUPPRESSMSGBOXES", "/NORESTART"}
	case has("installshield", "isscript"):
		return path, []string{"/s", "/v/qn"}
	default:
		return path, []string{genericSilentFlag}
	}
}
