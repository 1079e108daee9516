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

package library

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewStore(fs, "/data/library"), fs
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	rec, err := store.Load(1)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_LoadInvalidID(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	_, err := store.Load(0)
	require.ErrorIs(t, err, ErrInvalidAppID)
}

func TestStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	store, fs := newTestStore(t)
	rec := &Record{
		AppID:            7,
		Name:             "Seven",
		Version:          "1.0",
		Cwd:              "/games/seven",
		LaunchExecutable: "/games/seven/seven.exe",
		LaunchEnv:        map[string]string{"DXVK_HUD": "1"},
		LaunchMode:       ModeUnifiedCompat,
		Umu:              &UmuConfig{UmuID: "umu-7", DllOverrides: []string{"dinput8"}},
		Redistributables: []Redistributable{NewRedistributable("vcrun2019", "winetricks")},
	}
	require.NoError(t, store.Save(rec))

	data, err := afero.ReadFile(fs, "/data/library/7.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"name\": \"Seven\"")

	exists, err := afero.Exists(fs, "/data/library/.7.json.tmp")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := store.Load(7)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	require.ErrorIs(t, store.Save(nil), ErrInvalidAppID)
	require.ErrorIs(t, store.Save(&Record{}), ErrInvalidAppID)
}

func TestStore_LoadFillsAppIDFromName(t *testing.T) {
	t.Parallel()

	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, "/data/library/9.json", []byte(`{"name":"Nine"}`), 0o600))

	rec, err := store.Load(9)
	require.NoError(t, err)
	assert.Equal(t, 9, rec.AppID)
	assert.Equal(t, ModeNative, rec.LaunchMode)
}

func TestStore_ListAll(t *testing.T) {
	t.Parallel()

	store, fs := newTestStore(t)
	for _, id := range []int{30, 4, 12} {
		require.NoError(t, store.Save(&Record{AppID: id, Name: fmt.Sprintf("g%d", id)}))
	}
	require.NoError(t, afero.WriteFile(fs, "/data/library/broken.json", []byte("{}"), 0o600))
	require.NoError(t, afero.WriteFile(fs, "/data/library/5.json", []byte("not json"), 0o600))
	require.NoError(t, fs.MkdirAll("/data/library/6.json", 0o750))

	records, err := store.ListAll()
	require.NoError(t, err)

	ids := make([]int, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.AppID)
	}
	assert.Equal(t, []int{4, 12, 30}, ids)
}

func TestStore_ListAllMissingDir(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	records, err := store.ListAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_Remove(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	require.NoError(t, store.Save(&Record{AppID: 2}))
	require.NoError(t, store.Remove(2))

	rec, err := store.Load(2)
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.ErrorIs(t, store.Remove(2), ErrNotFound)
}

func TestStore_Update(t *testing.T) {
	t.Parallel()

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		store, _ := newTestStore(t)
		_, err := store.Update(1, func(*Record) error { return nil })
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("error_leaves_record", func(t *testing.T) {
		t.Parallel()
		store, _ := newTestStore(t)
		require.NoError(t, store.Save(&Record{AppID: 1, Version: "1"}))

		boom := errors.New("boom")
		_, err := store.Update(1, func(r *Record) error {
			r.Version = "2"
			return boom
		})
		require.ErrorIs(t, err, boom)

		rec, err := store.Load(1)
		require.NoError(t, err)
		assert.Equal(t, "1", rec.Version)
	})

	t.Run("app_id_is_fixed", func(t *testing.T) {
		t.Parallel()
		store, _ := newTestStore(t)
		require.NoError(t, store.Save(&Record{AppID: 1}))

		rec, err := store.Update(1, func(r *Record) error {
			r.AppID = 99
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, rec.AppID)
	})
}

func TestStore_UpdateSerializesWriters(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	require.NoError(t, store.Save(&Record{AppID: 1, LaunchEnv: map[string]string{}}))

	const writers = 20
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(1, func(r *Record) error {
				r.LaunchEnv[fmt.Sprintf("K%d", i)] = "v"
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := store.Load(1)
	require.NoError(t, err)
	assert.Len(t, rec.LaunchEnv, writers)
}

func TestParseRecordName(t *testing.T) {
	t.Parallel()

	id, ok := ParseRecordName("123.json")
	assert.True(t, ok)
	assert.Equal(t, 123, id)

	for _, name := range []string{"123.json.tmp", ".123.json.tmp", "abc.json", "0.json", "-1.json", "123"} {
		_, ok := ParseRecordName(name)
		assert.False(t, ok, name)
	}
}

func TestStore_Create(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	require.NoError(t, store.Create(&Record{AppID: 4, Name: "Four", Version: "1.0"}))

	err := store.Create(&Record{AppID: 4, Name: "Other"})
	require.ErrorIs(t, err, ErrExists)

	rec, err := store.Load(4)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Four", rec.Name)

	require.ErrorIs(t, store.Create(&Record{}), ErrInvalidAppID)
	require.ErrorIs(t, store.Create(nil), ErrInvalidAppID)
}
