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

// Package launch resolves how a library game is started and starts it.
package launch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/api/notifications"
	"github.com/LodestoneProject/lodestone-core/pkg/compat"
	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers/command"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
	"github.com/LodestoneProject/lodestone-core/pkg/migrate"
	"github.com/LodestoneProject/lodestone-core/pkg/platforms/shared/steam"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoExecutable = errors.New("game has no launch executable")
	ErrNoSteamDir   = errors.New("steam directory not found")
)

// Result is returned to the caller once the launch has been initiated.
type Result struct {
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// Runtime is the umu-launcher installation.
type Runtime interface {
	EnsureInstalled(ctx context.Context) error
	Path() string
}

// Migrator switches a legacy record to umu-launcher.
type Migrator interface {
	MigrateToUmu(ctx context.Context, appID int, legacyID string) migrate.Result
}

type Options struct {
	Store         *library.Store
	Runtime       Runtime
	Migrator      Migrator
	Exec          command.Executor
	Clock         clockwork.Clock
	Notifications chan<- models.Notification
	// Supported overrides the platform check.
	Supported     func() bool
	PrefixRoot    string
	SteamDir      string
	ProtonVersion string
	// Grace is how long a unified launch waits for an early exit.
	Grace time.Duration
}

// OptionsFromConfig fills the tunables of opts from cfg.
//
//nolint:gocritic // options struct copied on purpose
func OptionsFromConfig(cfg *config.Instance, opts Options) Options {
	opts.Grace = cfg.LaunchGrace()
	opts.ProtonVersion = cfg.ProtonVersion()
	if root := cfg.PrefixRoot(); root != "" {
		opts.PrefixRoot = root
	}
	if dir := cfg.SteamDir(); dir != "" && opts.SteamDir == "" {
		opts.SteamDir = dir
	}
	return opts
}

// Resolver launches games. Launches run concurrently.
type Resolver struct {
	opts Options
}

//nolint:gocritic // options struct copied on purpose
func NewResolver(opts Options) *Resolver {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Exec == nil {
		opts.Exec = &command.RealExecutor{}
	}
	if opts.Supported == nil {
		opts.Supported = compat.Supported
	}
	if opts.Grace <= 0 {
		opts.Grace = config.DefaultLaunchGrace
	}
	if opts.ProtonVersion == "" {
		opts.ProtonVersion = config.DefaultProtonVersion
	}
	return &Resolver{opts: opts}
}

// Launch starts appID. The result only covers starting the game; a later
// exit is reported on game.exited.
func (r *Resolver) Launch(ctx context.Context, appID int) Result {
	rec, err := r.opts.Store.Load(appID)
	if err != nil {
		return r.fail(appID, "", err)
	} else if rec == nil {
		return r.fail(appID, "", fmt.Errorf("%w: %d", library.ErrNotFound, appID))
	}
	if rec.LaunchExecutable == "" {
		return r.fail(appID, rec.Name, ErrNoExecutable)
	}

	supported := r.opts.Supported()
	mode := rec.Mode(supported)

	if supported && rec.NeedsMigration() && r.opts.Migrator != nil {
		res := r.opts.Migrator.MigrateToUmu(ctx, appID, rec.LegacyShortcutID)
		migrated, loadErr := r.opts.Store.Load(appID)
		switch {
		case res.Success && loadErr == nil && migrated != nil:
			rec = migrated
			mode = rec.Mode(supported)
		default:
			log.Warn().Int("appID", appID).Str("error", res.Error).
				Msg("migration before launch failed, launching with the legacy layout")
			notifications.Warning(r.opts.Notifications,
				fmt.Sprintf("Could not migrate %s, launching with the legacy setup", displayName(rec)))
			mode = library.ModeLegacyCompat
		}
	}

	var spec command.Spec
	switch mode {
	case library.ModeUnifiedCompat:
		spec, err = r.unifiedSpec(ctx, rec)
	case library.ModeLegacyCompat:
		spec, err = r.legacySpec(rec)
	default:
		spec, err = nativeSpec(rec)
	}
	if err != nil {
		return r.fail(appID, rec.Name, err)
	}

	log.Info().Int("appID", appID).Str("mode", string(mode)).Str("cmd", spec.String()).Msg("launching game")
	// the game outlives the request that started it
	proc, err := r.opts.Exec.Spawn(context.WithoutCancel(ctx), spec)
	if err != nil {
		return r.fail(appID, rec.Name, err)
	}
	notifications.GameLaunched(r.opts.Notifications, models.GameLaunchedParams{
		AppID: appID,
		Mode:  string(mode),
		Pid:   proc.Pid(),
	})

	grace := time.Duration(0)
	if mode == library.ModeUnifiedCompat {
		grace = r.opts.Grace
	}
	if res, ok := r.track(ctx, rec, proc, grace); ok {
		if !res.Success() {
			return r.fail(appID, rec.Name, fmt.Errorf("%s exited with code %d", filepath.Base(spec.Name), res.Code))
		}
	}
	return Result{Success: true}
}

// track waits for proc in the background. If proc exits within grace its
// result is returned with ok set, otherwise exits are reported only as
// notifications.
func (r *Resolver) track(
	ctx context.Context,
	rec *library.Record,
	proc command.Process,
	grace time.Duration,
) (res command.ExitResult, ok bool) {
	early := make(chan command.ExitResult)
	graceOver := make(chan struct{})

	go func() {
		res, err := proc.Wait()
		exited := models.GameExitedParams{AppID: rec.AppID, Code: res.Code, Signaled: res.Signaled}
		if err != nil {
			exited.Error = err.Error()
		}
		log.Info().Int("appID", rec.AppID).Int("code", res.Code).Bool("signaled", res.Signaled).Msg("game exited")
		notifications.GameExited(r.opts.Notifications, exited)

		select {
		case early <- res:
		case <-graceOver:
			if err != nil || !res.Success() {
				log.Error().Err(err).Int("appID", rec.AppID).Int("code", res.Code).Msg("game crashed")
				notifications.Error(r.opts.Notifications,
					fmt.Sprintf("%s crashed (exit code %d)", displayName(rec), res.Code))
			}
		}
	}()

	if grace <= 0 {
		close(graceOver)
		return res, false
	}
	select {
	case res = <-early:
		return res, true
	case <-r.opts.Clock.After(grace):
	case <-ctx.Done():
	}
	close(graceOver)
	return res, false
}

func (r *Resolver) unifiedSpec(ctx context.Context, rec *library.Record) (command.Spec, error) {
	if err := r.opts.Runtime.EnsureInstalled(ctx); err != nil {
		return command.Spec{}, fmt.Errorf("compatibility runtime unavailable: %w", err)
	}
	parsed, err := compat.SplitLaunchArgs(rec.LaunchArguments)
	if err != nil {
		return command.Spec{}, err
	}

	umu := rec.Umu
	gameID := compat.NormalizeGameID(umu.UmuID)
	if gameID == "" {
		gameID = library.DefaultUmuID(rec.AppID)
	}
	prefix := umu.WinePrefixPath
	if prefix == "" {
		root := r.opts.PrefixRoot
		if root == "" {
			if root, err = compat.DefaultPrefixRoot(); err != nil {
				return command.Spec{}, err
			}
		}
		prefix = compat.UmuPrefixDir(root, gameID)
	}
	proton := umu.ProtonVersion
	if proton == "" {
		proton = r.opts.ProtonVersion
	}

	overrides := map[string]string{
		compat.EnvGameID:     gameID,
		compat.EnvWinePrefix: prefix,
		compat.EnvProtonPath: proton,
	}
	if umu.Store != "" {
		overrides[compat.EnvStore] = umu.Store
	}
	if dlls := dllOverrides(rec); dlls != "" {
		overrides[compat.EnvDllOverrides] = dlls
	}

	return command.Spec{
		Name:   r.opts.Runtime.Path(),
		Args:   append([]string{executablePath(rec)}, parsed.Args...),
		Dir:    rec.Cwd,
		Env:    envList(MergeEnv(parsed.EnvMap(), rec.LaunchEnv, overrides)),
		Detach: true,
	}, nil
}

// legacySpec wraps the executable with the Proton build Steam maps to the
// game's shortcut.
func (r *Resolver) legacySpec(rec *library.Record) (command.Spec, error) {
	steamDir := r.opts.SteamDir
	if steamDir == "" {
		return command.Spec{}, ErrNoSteamDir
	}
	shortcutID := rec.LegacyShortcutID
	if shortcutID == "" {
		id, err := steam.FindShortcutID(steamDir, rec.Name)
		if err != nil {
			return command.Spec{}, fmt.Errorf("failed to find shortcut for %s: %w", displayName(rec), err)
		}
		shortcutID = id
	}

	tool, err := steam.CompatToolFor(steamDir, shortcutID)
	if err != nil {
		log.Debug().Err(err).Str("shortcut", shortcutID).Msg("no compat tool mapping, using default proton")
		tool = r.opts.ProtonVersion
	}
	protonDir, err := steam.ProtonDir(steamDir, tool)
	if err != nil {
		return command.Spec{}, err
	}

	parsed, err := compat.SplitLaunchArgs(rec.LaunchArguments)
	if err != nil {
		return command.Spec{}, err
	}
	overrides := map[string]string{
		compat.EnvCompatDataPath:   compat.LegacyCompatDataDir(steamDir, shortcutID),
		compat.EnvCompatClientPath: steamDir,
	}
	if dlls := dllOverrides(rec); dlls != "" {
		overrides[compat.EnvDllOverrides] = dlls
	}
	return command.Spec{
		Name: filepath.Join(protonDir, "proton"),
		Args: append([]string{"run", executablePath(rec)}, parsed.Args...),
		Dir:  rec.Cwd,
		Env:  envList(MergeEnv(baseEnv(rec, parsed), overrides)),
	}, nil
}

func nativeSpec(rec *library.Record) (command.Spec, error) {
	parsed, err := compat.SplitLaunchArgs(rec.LaunchArguments)
	if err != nil {
		return command.Spec{}, err
	}
	return command.Spec{
		Name: executablePath(rec),
		Args: parsed.Args,
		Dir:  rec.Cwd,
		Env:  envList(baseEnv(rec, parsed)),
	}, nil
}

// baseEnv is the record's env map, or the leading assignments of its
// arguments for records saved before the map existed.
func baseEnv(rec *library.Record, parsed compat.LaunchArgs) map[string]string {
	if rec.LaunchEnv != nil {
		return rec.LaunchEnv
	}
	return parsed.EnvMap()
}

func executablePath(rec *library.Record) string {
	if filepath.IsAbs(rec.LaunchExecutable) || rec.Cwd == "" {
		return rec.LaunchExecutable
	}
	return filepath.Join(rec.Cwd, rec.LaunchExecutable)
}

func (r *Resolver) fail(appID int, name string, err error) Result {
	log.Error().Err(err).Int("appID", appID).Msg("launch failed")
	if name == "" {
		name = fmt.Sprintf("game %d", appID)
	}
	notifications.Error(r.opts.Notifications, fmt.Sprintf("Could not launch %s: %v", name, err))
	return Result{Error: err.Error()}
}

func displayName(rec *library.Record) string {
	if rec.Name != "" {
		return rec.Name
	}
	return fmt.Sprintf("game %d", rec.AppID)
}
