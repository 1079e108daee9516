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
	"testing"

	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/stretchr/testify/require"
)

// NewTestConfig creates a config instance backed by a fresh file in dir.
// Pass t.TempDir() for an isolated config.
func NewTestConfig(t *testing.T, dir string) *config.Instance {
	t.Helper()
	defaults := config.BaseDefaults
	cfg, err := config.NewConfig(dir, defaults)
	require.NoError(t, err)
	return cfg
}
