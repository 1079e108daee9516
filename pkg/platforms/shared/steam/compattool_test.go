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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configVDF = `"InstallConfigStore"
{
	"Software"
	{
		"Valve"
		{
			"Steam"
			{
				"CompatToolMapping"
				{
					"0"
					{
						"name"		"proton_experimental"
						"config"		""
						"priority"		"75"
					}
					"3000000001"
					{
						"name"		"GE-Proton9-20"
						"config"		""
						"priority"		"250"
					}
				}
			}
		}
	}
}
`

func TestCompatToolFor(t *testing.T) {
	t.Parallel()

	steamDir := t.TempDir()
	writeFile(t, filepath.Join(steamDir, "config", "config.vdf"), configVDF)

	tool, err := CompatToolFor(steamDir, "3000000001")
	require.NoError(t, err)
	assert.Equal(t, "GE-Proton9-20", tool)

	tool, err = CompatToolFor(steamDir, "3000000002")
	require.NoError(t, err)
	assert.Equal(t, "proton_experimental", tool)
}

func TestCompatToolFor_Errors(t *testing.T) {
	t.Parallel()

	_, err := CompatToolFor(t.TempDir(), "1")
	require.Error(t, err)

	steamDir := t.TempDir()
	writeFile(t, filepath.Join(steamDir, "config", "config.vdf"), `"InstallConfigStore" { "Software" {} }`)
	_, err = CompatToolFor(steamDir, "1")
	require.ErrorIs(t, err, ErrNoCompatTool)
}

func TestProtonDir(t *testing.T) {
	t.Parallel()

	steamDir := t.TempDir()
	writeFile(t, filepath.Join(steamDir, "compatibilitytools.d", "GE-Proton9-20", "proton"), "#!")
	writeFile(t, filepath.Join(steamDir, "steamapps", "common", "Proton - Experimental", "proton"), "#!")
	writeFile(t, filepath.Join(steamDir, "steamapps", "common", "Proton 9.0", "proton"), "#!")
	writeFile(t, filepath.Join(steamDir, "steamapps", "common", "Proton 8.0", "readme"), "")

	tests := []struct {
		tool string
		want string
	}{
		{tool: "GE-Proton9-20", want: filepath.Join(steamDir, "compatibilitytools.d", "GE-Proton9-20")},
		{tool: "proton_experimental", want: filepath.Join(steamDir, "steamapps", "common", "Proton - Experimental")},
		{tool: "proton_9", want: filepath.Join(steamDir, "steamapps", "common", "Proton 9.0")},
	}
	for _, tt := range tests {
		dir, err := ProtonDir(steamDir, tt.tool)
		require.NoError(t, err, tt.tool)
		assert.Equal(t, tt.want, dir)
	}

	_, err := ProtonDir(steamDir, "proton_8")
	require.ErrorIs(t, err, ErrNoProton)
}
