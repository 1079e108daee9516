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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstallerCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		wantProg string
		wantArgs []string
	}{
		{name: "vc_modern", path: "/r/VC_redist.x64.exe", wantArgs: []string{"/install", "/quiet", "/norestart"}},
		{name: "vc_2008", path: "/r/vcredist_x86_2008.exe", wantArgs: []string{"/q"}},
		{name: "directx", path: "/r/DXSETUP.exe", wantArgs: []string{"/silent"}},
		{name: "dotnet", path: "/r/NDP472-KB4054530-x86-x64-AllOS-ENU.exe", wantArgs: []string{"/q", "/norestart"}},
		{name: "msi", path: "/r/PhysX.MSI", wantProg: "msiexec", wantArgs: []string{"/i", "/r/PhysX.MSI", "/qn", "/norestart"}},
		{name: "nsis", path: "/r/tool-nsis-setup.exe", wantArgs: []string{"/S"}},
		{name: "inno", path: "/r/inno_setup.exe", wantArgs: []string{"/VERYSILENT", "/SUPPRESSMSGBOXES", "/NORESTART"}},
		{name: "installshield", path: "/r/ISScript1050.exe", wantArgs: []string{"/s", "/v/qn"}},
		{name: "unknown", path: "/r/setup.exe", wantArgs: []string{"/quiet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prog, args := installerCommand(tt.path)
			want := tt.wantProg
			if want == "" {
				want = tt.path
			}
			assert.Equal(t, want, prog)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
