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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers/command"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
	"github.com/LodestoneProject/lodestone-core/pkg/shared/httpclient"
	"github.com/LodestoneProject/lodestone-core/pkg/testing/mocks"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	err       error
	installed bool
	ensured   int
}

func (f *fakeRuntime) Installed() bool { return f.installed }

func (f *fakeRuntime) EnsureInstalled(context.Context) error {
	f.ensured++
	if f.err != nil {
		return f.err
	}
	f.installed = true
	return nil
}

func (*fakeRuntime) Path() string { return "/tools/umu/umu-run" }

type fakeDownloader struct {
	calls int
}

func (f *fakeDownloader) DownloadFile(_ context.Context, args httpclient.DownloadFileArgs) error {
	f.calls++
	return afero.WriteFile(args.Fs, args.OutputPath, []byte("MZ"), 0o600)
}

type testEnv struct {
	fs    afero.Fs
	store *library.Store
	rt    *fakeRuntime
	exec  *mocks.MockCommandExecutor
	dl    *fakeDownloader
	ns    chan models.Notification
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fs := afero.NewMemMapFs()
	return &testEnv{
		fs:    fs,
		store: library.NewStore(fs, "/library"),
		rt:    &fakeRuntime{},
		exec:  &mocks.MockCommandExecutor{},
		dl:    &fakeDownloader{},
		ns:    make(chan models.Notification, 256),
	}
}

func (e *testEnv) installer(mut func(*Options)) *Installer {
	opts := Options{
		Fs:                e.fs,
		Store:             e.store,
		Runtime:           e.rt,
		Exec:              e.exec,
		Downloader:        e.dl,
		Notifications:     e.ns,
		Supported:         func() bool { return true },
		PrefixRoot:        "/prefixes",
		SteamDir:          "/steam",
		ToolsDir:          "/tools",
		RepairToolURL:     "https://example.invalid/NetFxRepairTool.exe",
		ItemTimeout:       time.Minute,
		RepairTimeout:     time.Minute,
		PrefixInitTimeout: time.Minute,
	}
	if mut != nil {
		mut(&opts)
	}
	return NewInstaller(opts)
}

func items() []library.Redistributable {
	return []library.Redistributable{
		library.NewRedistributable("vcrun2019", "winetricks"),
		library.NewRedistributable("DirectX", "/games/g/_redist/DXSETUP.exe"),
		library.NewRedistributable("dotnet-repair", "microsoft"),
	}
}

func unifiedRecord() *library.Record {
	return &library.Record{
		AppID:            10,
		Name:             "Ten",
		LaunchMode:       library.ModeUnifiedCompat,
		Umu:              &library.UmuConfig{UmuID: "umu-10"},
		Redistributables: items(),
	}
}

func specArg0(name string) any {
	return mock.MatchedBy(func(s command.Spec) bool {
		return len(s.Args) > 0 && s.Args[0] == name
	})
}

func collect(dst *[]Progress) func(Progress) {
	return func(p Progress) { *dst = append(*dst, p) }
}

func TestInstall_AllSucceedClearsList(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.NoError(t, env.store.Save(unifiedRecord()))
	require.NoError(t, env.fs.MkdirAll("/prefixes/umu-10/drive_c", 0o750))
	env.exec.On("Spawn", mock.Anything, mock.Anything).Return(mocks.NewExitedProcess(0), nil)

	var progress []Progress
	res := env.installer(nil).Install(context.Background(), 10, collect(&progress))
	assert.Equal(t, ResultSuccess, res)

	rec, err := env.store.Load(10)
	require.NoError(t, err)
	assert.Empty(t, rec.Redistributables)

	require.Len(t, progress, 4)
	for i, p := range progress[:3] {
		assert.Equal(t, ProgressItem, p.Kind)
		assert.Equal(t, 3, p.Total)
		assert.Equal(t, i+1, p.Completed)
		require.NotNil(t, p.ItemSuccess)
		assert.True(t, *p.ItemSuccess)
	}
	assert.InDelta(t, 1.0/3, progress[0].OverallProgress, 1e-9)
	done := progress[3]
	assert.Equal(t, ProgressDone, done.Kind)
	assert.Equal(t, 3, done.Completed)
	assert.Zero(t, done.Failed)
	assert.InDelta(t, 1.0, done.OverallProgress, 1e-9)

	specs := env.exec.SpawnedSpecs()
	require.Len(t, specs, 3)
	assert.Equal(t, []string{"winetricks", "-q", "vcrun2019"}, specs[0].Args)
	assert.Equal(t, []string{"/games/g/_redist/DXSETUP.exe", "/silent"}, specs[1].Args)
	assert.Equal(t, "/games/g/_redist", specs[1].Dir)
	assert.Equal(t, []string{"/tools/NetFxRepairTool.exe", "/repair", "/q"}, specs[2].Args)
	for _, s := range specs {
		assert.Equal(t, "/tools/umu/umu-run", s.Name)
		assert.Contains(t, s.Env, "WINEPREFIX=/prefixes/umu-10")
		assert.Contains(t, s.Env, "GAMEID=umu-10")
		assert.Contains(t, s.Env, "PROTONPATH=GE-Proton")
	}
	assert.Equal(t, 1, env.dl.calls)
}

func TestInstall_PartialFailureKeepsList(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.NoError(t, env.store.Save(unifiedRecord()))
	require.NoError(t, env.fs.MkdirAll("/prefixes/umu-10/drive_c", 0o750))
	env.exec.On("Spawn", mock.Anything, specArg0("/games/g/_redist/DXSETUP.exe")).
		Return(mocks.NewExitedProcess(1), nil)
	env.exec.On("Spawn", mock.Anything, mock.Anything).Return(mocks.NewExitedProcess(0), nil)

	var progress []Progress
	res := env.installer(nil).Install(context.Background(), 10, collect(&progress))
	assert.Equal(t, ResultFailed, res)

	rec, err := env.store.Load(10)
	require.NoError(t, err)
	assert.Equal(t, items(), rec.Redistributables)

	// the batch keeps going after a failure
	require.Len(t, env.exec.SpawnedSpecs(), 3)
	require.Len(t, progress, 4)
	assert.False(t, *progress[1].ItemSuccess)
	assert.True(t, *progress[2].ItemSuccess)
	assert.Equal(t, 2, progress[3].Completed)
	assert.Equal(t, 1, progress[3].Failed)
}

func TestInstall_TimeoutCountsAsFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := unifiedRecord()
	rec.Redistributables = rec.Redistributables[:1]
	require.NoError(t, env.store.Save(rec))
	require.NoError(t, env.fs.MkdirAll("/prefixes/umu-10/drive_c", 0o750))

	proc, _ := mocks.NewBlockingProcess(0)
	env.exec.On("Spawn", mock.Anything, mock.Anything).Return(proc, nil)

	in := env.installer(func(o *Options) { o.ItemTimeout = 50 * time.Millisecond })
	assert.Equal(t, ResultFailed, in.Install(context.Background(), 10, nil))
	proc.AssertCalled(t, "Terminate")
}

func TestInstall_NotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	assert.Equal(t, ResultNotFound, env.installer(nil).Install(context.Background(), 99, nil))
	assert.Zero(t, env.rt.ensured)
}

func TestInstall_Preconditions(t *testing.T) {
	t.Parallel()

	t.Run("unsupported_platform", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		require.NoError(t, env.store.Save(unifiedRecord()))
		in := env.installer(func(o *Options) { o.Supported = func() bool { return false } })
		assert.Equal(t, ResultFailed, in.Install(context.Background(), 10, nil))
		assert.Zero(t, env.rt.ensured)
	})

	t.Run("runtime_install_fails", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.rt.err = errors.New("offline")
		require.NoError(t, env.store.Save(unifiedRecord()))
		assert.Equal(t, ResultFailed, env.installer(nil).Install(context.Background(), 10, nil))
		assert.Equal(t, 1, env.rt.ensured)
		assert.Empty(t, env.exec.SpawnedSpecs())
	})

	t.Run("legacy_prefix_missing", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		require.NoError(t, env.store.Save(&library.Record{
			AppID:            11,
			LaunchMode:       library.ModeLegacyCompat,
			LegacyShortcutID: "3000000001",
			Redistributables: items(),
		}))
		assert.Equal(t, ResultFailed, env.installer(nil).Install(context.Background(), 11, nil))
		assert.Empty(t, env.exec.SpawnedSpecs())
	})

	t.Run("legacy_without_shortcut", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		require.NoError(t, env.store.Save(&library.Record{AppID: 11, LaunchMode: library.ModeLegacyCompat}))
		assert.Equal(t, ResultFailed, env.installer(nil).Install(context.Background(), 11, nil))
	})
}

func TestInstall_LegacyPrefix(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := &library.Record{
		AppID:            11,
		LaunchMode:       library.ModeLegacyCompat,
		LegacyShortcutID: "3000000001",
		Redistributables: items()[:1],
	}
	require.NoError(t, env.store.Save(rec))
	require.NoError(t, env.fs.MkdirAll("/steam/steamapps/compatdata/3000000001/pfx", 0o750))
	env.exec.On("Spawn", mock.Anything, mock.Anything).Return(mocks.NewExitedProcess(0), nil)

	assert.Equal(t, ResultSuccess, env.installer(nil).Install(context.Background(), 11, nil))
	specs := env.exec.SpawnedSpecs()
	require.Len(t, specs, 1)
	assert.Contains(t, specs[0].Env, "WINEPREFIX=/steam/steamapps/compatdata/3000000001/pfx")
}

func TestInstall_InitializesFreshPrefix(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := unifiedRecord()
	rec.Redistributables = rec.Redistributables[:1]
	require.NoError(t, env.store.Save(rec))
	env.exec.On("Spawn", mock.Anything, mock.Anything).Return(mocks.NewExitedProcess(0), nil)

	assert.Equal(t, ResultSuccess, env.installer(nil).Install(context.Background(), 10, nil))
	specs := env.exec.SpawnedSpecs()
	require.Len(t, specs, 2)
	assert.Equal(t, []string{""}, specs[0].Args)
	assert.Contains(t, specs[0].Env, "WINEPREFIX=/prefixes/umu-10")
}

func TestInstall_PrefixInitFailureStopsBatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.NoError(t, env.store.Save(unifiedRecord()))
	env.exec.On("Spawn", mock.Anything, specArg0("")).Return(mocks.NewExitedProcess(3), nil)

	assert.Equal(t, ResultFailed, env.installer(nil).Install(context.Background(), 10, nil))
	assert.Len(t, env.exec.SpawnedSpecs(), 1)

	rec, err := env.store.Load(10)
	require.NoError(t, err)
	assert.Len(t, rec.Redistributables, 3)
}

func TestInstall_RepairToolCached(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := unifiedRecord()
	rec.Redistributables = []library.Redistributable{library.NewRedistributable("dotnet-repair", "microsoft")}
	require.NoError(t, env.store.Save(rec))
	require.NoError(t, env.fs.MkdirAll("/prefixes/umu-10/drive_c", 0o750))
	require.NoError(t, afero.WriteFile(env.fs, "/tools/NetFxRepairTool.exe", []byte("MZ"), 0o600))
	env.exec.On("Spawn", mock.Anything, mock.Anything).Return(mocks.NewExitedProcess(0), nil)

	assert.Equal(t, ResultSuccess, env.installer(nil).Install(context.Background(), 10, nil))
	assert.Zero(t, env.dl.calls)
}

func TestInstall_EmptyBatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := unifiedRecord()
	rec.Redistributables = nil
	require.NoError(t, env.store.Save(rec))
	require.NoError(t, env.fs.MkdirAll("/prefixes/umu-10/drive_c", 0o750))

	var progress []Progress
	assert.Equal(t, ResultSuccess, env.installer(nil).Install(context.Background(), 10, collect(&progress)))
	require.Len(t, progress, 1)
	assert.Equal(t, ProgressDone, progress[0].Kind)
}

func TestInstall_EmitsNotifications(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := unifiedRecord()
	rec.Redistributables = rec.Redistributables[:1]
	require.NoError(t, env.store.Save(rec))
	require.NoError(t, env.fs.MkdirAll("/prefixes/umu-10/drive_c", 0o750))
	env.exec.On("Spawn", mock.Anything, mock.Anything).Return(mocks.NewExitedProcess(0), nil)

	env.installer(nil).Install(context.Background(), 10, nil)
	close(env.ns)

	var methods []string
	for n := range env.ns {
		methods = append(methods, n.Method)
	}
	assert.Equal(t, []string{
		models.NotificationRedistProgress,
		models.NotificationRedistProgress,
		models.NotificationNotify,
	}, methods)
}
