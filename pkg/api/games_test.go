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

package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
	"github.com/LodestoneProject/lodestone-core/pkg/platforms/shared/steam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistrar struct {
	err       error
	shortcuts []steam.Shortcut
}

func (f *fakeRegistrar) RegisterShortcut(_ context.Context, sc steam.Shortcut) (string, error) {
	f.shortcuts = append(f.shortcuts, sc)
	if f.err != nil {
		return "", f.err
	}
	return "3000000042", nil
}

func withRegistrar(r Registrar) func(*Options) {
	return func(o *Options) { o.Registrar = r }
}

func TestAddGame(t *testing.T) {
	t.Parallel()

	t.Run("creates_record", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/api/games", `{
			"appID": 5,
			"name": "Five",
			"version": "1.0",
			"cwd": "/games/five",
			"launchExecutable": "five.exe",
			"launchEnv": {},
			"umu": {"store": "gog"},
			"redistributables": [
				{"name": "vcrun2019", "path": "winetricks"},
				{"name": "dotnet-repair", "path": "microsoft"},
				{"name": "DirectX", "path": "/games/five/_redist/dxsetup.exe"}
			]
		}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		rec, err := env.store.Load(5)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "1.0", rec.Version)
		assert.Equal(t, library.ModeUnifiedCompat, rec.LaunchMode)
		require.NotNil(t, rec.Umu)
		assert.Equal(t, "umu-5", rec.Umu.UmuID)
		assert.Equal(t, "gog", rec.Umu.Store)
		require.NotNil(t, rec.LaunchEnv)
		assert.Empty(t, rec.LaunchEnv)
		kinds := make([]library.RedistKind, 0, len(rec.Redistributables))
		for _, item := range rec.Redistributables {
			kinds = append(kinds, item.Kind)
		}
		assert.Equal(t, []library.RedistKind{
			library.KindBuiltinVerb, library.KindRepairTool, library.KindFileInstaller,
		}, kinds)
	})

	t.Run("existing_conflicts", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		require.NoError(t, env.store.Save(&library.Record{AppID: 5, Name: "Old"}))

		w := env.do(t, http.MethodPost, "/api/games", `{"appID": 5, "name": "New", "launchExecutable": "/x"}`)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = env.do(t, http.MethodPost, "/api/games",
			`{"appID": 5, "name": "New", "launchExecutable": "/x", "replace": true}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "New", decode[library.Record](t, w).Name)
	})

	t.Run("validates", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/api/games", `{"appID": 0, "launchExecutable": "/x"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		msg := decode[models.ErrorObject](t, w).Message
		assert.Contains(t, msg, "appID must be at least 1")
		assert.Contains(t, msg, "name is required")

		w = env.do(t, http.MethodPost, "/api/games",
			`{"appID": 1, "name": "x", "launchExecutable": "/x", "launchMode": "unified-compat"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("registers_legacy_shortcut", func(t *testing.T) {
		t.Parallel()
		reg := &fakeRegistrar{}
		env := newTestEnv(t, withRegistrar(reg))

		w := env.do(t, http.MethodPost, "/api/games", `{
			"appID": 6,
			"name": "Six",
			"cwd": "/games/six",
			"launchExecutable": "six.exe",
			"launchArguments": "-windowed",
			"launchMode": "legacy-compat",
			"compatTool": "GE-Proton9-20",
			"registerShortcut": true
		}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		require.Len(t, reg.shortcuts, 1)
		assert.Equal(t, steam.Shortcut{
			Name:          "Six",
			Exe:           "/games/six/six.exe",
			StartDir:      "/games/six",
			LaunchOptions: "-windowed",
			CompatTool:    "GE-Proton9-20",
		}, reg.shortcuts[0])

		rec, err := env.store.Load(6)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "3000000042", rec.LegacyShortcutID)
		assert.Equal(t, library.ModeLegacyCompat, rec.LaunchMode)
		assert.True(t, rec.LegacyMode)
	})

	t.Run("registration_errors", func(t *testing.T) {
		t.Parallel()
		body := `{"appID": 6, "name": "Six", "launchExecutable": "/six.exe",
			"launchMode": "legacy-compat", "registerShortcut": true}`

		env := newTestEnv(t)
		w := env.do(t, http.MethodPost, "/api/games", body)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		env = newTestEnv(t, withRegistrar(&fakeRegistrar{err: errors.New("exit status 1")}))
		w = env.do(t, http.MethodPost, "/api/games", body)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		rec, err := env.store.Load(6)
		require.NoError(t, err)
		assert.Nil(t, rec)

		w = env.do(t, http.MethodPost, "/api/games",
			`{"appID": 7, "name": "Seven", "launchExecutable": "/s", "registerShortcut": true}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateVersion(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	require.NoError(t, env.store.Save(&library.Record{
		AppID:      8,
		Name:       "Eight",
		Version:    "1.0",
		LaunchMode: library.ModeNative,
	}))

	w := env.do(t, http.MethodPost, "/api/games/8/version", `{"version": "1.1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.1", decode[library.Record](t, w).Version)

	rec, err := env.store.Load(8)
	require.NoError(t, err)
	assert.Equal(t, "1.1", rec.Version)
	assert.Equal(t, "Eight", rec.Name)

	w = env.do(t, http.MethodPost, "/api/games/9/version", `{"version": "1.1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodPost, "/api/games/8/version", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
