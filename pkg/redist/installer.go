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

// Package redist installs runtime redistributables into a game's Wine
// prefix.
package redist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/api/notifications"
	"github.com/LodestoneProject/lodestone-core/pkg/compat"
	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers/command"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
	"github.com/LodestoneProject/lodestone-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Result is the outcome of an install batch.
type Result string

const (
	ResultSuccess  Result = "success"
	ResultFailed   Result = "failed"
	ResultNotFound Result = "not-found"
)

const (
	ProgressItem = "item"
	ProgressDone = "done"
)

const (
	repairToolFile = "NetFxRepairTool.exe"
	// prefixMarker exists in every initialized prefix.
	prefixMarker = "drive_c"
)

var (
	errPrefixMissing = errors.New("compatibility prefix does not exist")
	errNoShortcut    = errors.New("legacy record has no shortcut id")
)

var repairToolArgs = []string{"/repair", "/q"}

// Progress is reported after every item and once when the batch ends.
type Progress struct {
	ItemSuccess     *bool
	Kind            string
	Item            string
	Total           int
	Completed       int
	Failed          int
	OverallProgress float64
}

// Runtime is the umu-launcher install.
type Runtime interface {
	Installed() bool
	EnsureInstalled(ctx context.Context) error
	Path() string
}

// Options wires an Installer.
type Options struct {
	Fs            afero.Fs
	Store         *library.Store
	Runtime       Runtime
	Exec          command.Executor
	Downloader    compat.Downloader
	Notifications chan<- models.Notification
	// Supported overrides the platform check.
	Supported         func() bool
	PrefixRoot        string
	SteamDir          string
	ToolsDir          string
	RepairToolURL     string
	ProtonVersion     string
	ItemTimeout       time.Duration
	RepairTimeout     time.Duration
	PrefixInitTimeout time.Duration
}

// OptionsFromConfig fills the tunables of opts from cfg.
//
//nolint:gocritic // options struct copied on purpose
func OptionsFromConfig(cfg *config.Instance, opts Options) Options {
	opts.ItemTimeout = cfg.RedistItemTimeout()
	opts.RepairTimeout = cfg.RedistRepairTimeout()
	opts.PrefixInitTimeout = cfg.PrefixInitTimeout()
	opts.RepairToolURL = cfg.RepairToolURL()
	opts.ProtonVersion = cfg.ProtonVersion()
	if root := cfg.PrefixRoot(); root != "" {
		opts.PrefixRoot = root
	}
	if dir := cfg.SteamDir(); dir != "" && opts.SteamDir == "" {
		opts.SteamDir = dir
	}
	return opts
}

// Installer runs redistributable batches. Items of one batch run one
// after another.
type Installer struct {
	opts Options
}

//nolint:gocritic // options struct copied on purpose
func NewInstaller(opts Options) *Installer {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Supported == nil {
		opts.Supported = compat.Supported
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = config.DefaultRedistItemTimeout
	}
	if opts.RepairTimeout <= 0 {
		opts.RepairTimeout = config.DefaultRedistRepairTimeout
	}
	if opts.PrefixInitTimeout <= 0 {
		opts.PrefixInitTimeout = config.DefaultPrefixInitTimeout
	}
	if opts.ProtonVersion == "" {
		opts.ProtonVersion = config.DefaultProtonVersion
	}
	return &Installer{opts: opts}
}

// target is the prefix a batch installs into.
type target struct {
	prefix string
	gameID string
	proton string
	store  string
	fresh  bool
}

func (t target) env() []string {
	env := []string{
		compat.EnvWinePrefix + "=" + t.prefix,
		compat.EnvGameID + "=" + t.gameID,
		compat.EnvProtonPath + "=" + t.proton,
	}
	if t.store != "" {
		env = append(env, compat.EnvStore+"="+t.store)
	}
	return env
}

// Install installs every pending redistributable of appID. The persisted
// list is cleared only when all items succeed, so a failed batch can be
// retried as a whole.
func (in *Installer) Install(ctx context.Context, appID int, onProgress func(Progress)) Result {
	if !in.opts.Supported() {
		in.failure(appID, "", compat.ErrUnsupportedPlatform)
		return ResultFailed
	}

	rec, err := in.opts.Store.Load(appID)
	if err != nil {
		in.failure(appID, "", err)
		return ResultFailed
	} else if rec == nil {
		log.Warn().Int("appID", appID).Msg("redistributable install for unknown game")
		return ResultNotFound
	}

	if err := in.opts.Runtime.EnsureInstalled(ctx); err != nil {
		in.failure(appID, rec.Name, err)
		return ResultFailed
	}

	tgt, err := in.resolveTarget(rec)
	if err != nil {
		in.failure(appID, rec.Name, err)
		return ResultFailed
	}
	if tgt.fresh {
		if err := in.initPrefix(ctx, tgt); err != nil {
			in.failure(appID, rec.Name, err)
			return ResultFailed
		}
	}

	items := rec.Redistributables
	p := Progress{Total: len(items)}
	for _, item := range items {
		if ctx.Err() != nil {
			log.Warn().Int("appID", appID).Msg("redistributable install cancelled")
			p.Failed += len(items) - p.Completed - p.Failed
			break
		}
		ok := in.installItem(ctx, tgt, item)
		if ok {
			p.Completed++
		} else {
			p.Failed++
		}
		p.Kind = ProgressItem
		p.Item = item.Name
		p.ItemSuccess = &ok
		p.OverallProgress = float64(p.Completed+p.Failed) / float64(p.Total)
		in.report(appID, p, onProgress)
	}

	p.Kind = ProgressDone
	p.Item = ""
	p.ItemSuccess = nil
	p.OverallProgress = 1
	in.report(appID, p, onProgress)

	if p.Failed > 0 {
		msg := fmt.Sprintf("%d of %d redistributables failed to install for %s", p.Failed, p.Total, rec.Name)
		log.Error().Int("appID", appID).Int("failed", p.Failed).Msg("redistributable batch failed")
		notifications.Error(in.opts.Notifications, msg)
		return ResultFailed
	}

	if len(items) > 0 {
		_, err := in.opts.Store.Update(appID, func(r *library.Record) error {
			r.Redistributables = nil
			return nil
		})
		if err != nil {
			in.failure(appID, rec.Name, fmt.Errorf("failed to clear installed redistributables: %w", err))
			return ResultFailed
		}
		notifications.Success(in.opts.Notifications,
			fmt.Sprintf("Installed %d redistributables for %s", len(items), rec.Name))
	}
	log.Info().Int("appID", appID).Int("count", len(items)).Msg("redistributables installed")
	return ResultSuccess
}

func (in *Installer) resolveTarget(rec *library.Record) (target, error) {
	if rec.Mode(true) == library.ModeLegacyCompat {
		if rec.LegacyShortcutID == "" {
			return target{}, errNoShortcut
		}
		prefix := compat.LegacyPrefixDir(in.opts.SteamDir, rec.LegacyShortcutID)
		if ok, _ := afero.DirExists(in.opts.Fs, prefix); !ok {
			return target{}, fmt.Errorf("%w: %s", errPrefixMissing, prefix)
		}
		return target{
			prefix: prefix,
			gameID: library.DefaultUmuID(rec.AppID),
			proton: in.opts.ProtonVersion,
		}, nil
	}

	tgt := target{
		gameID: library.DefaultUmuID(rec.AppID),
		proton: in.opts.ProtonVersion,
	}
	if u := rec.Umu; u != nil {
		if u.UmuID != "" {
			tgt.gameID = compat.NormalizeGameID(u.UmuID)
		}
		if u.ProtonVersion != "" {
			tgt.proton = u.ProtonVersion
		}
		tgt.store = u.Store
		tgt.prefix = u.WinePrefixPath
	}
	if tgt.prefix == "" {
		root := in.opts.PrefixRoot
		if root == "" {
			var err error
			if root, err = compat.DefaultPrefixRoot(); err != nil {
				return target{}, err
			}
		}
		tgt.prefix = compat.UmuPrefixDir(root, tgt.gameID)
	}
	ok, _ := afero.DirExists(in.opts.Fs, filepath.Join(tgt.prefix, prefixMarker))
	tgt.fresh = !ok
	return tgt, nil
}

// initPrefix runs an empty command so umu-run creates the prefix.
func (in *Installer) initPrefix(ctx context.Context, tgt target) error {
	log.Info().Str("prefix", tgt.prefix).Msg("initializing compatibility prefix")
	if err := in.opts.Fs.MkdirAll(tgt.prefix, 0o750); err != nil {
		return fmt.Errorf("failed to create prefix: %w", err)
	}
	res, err := command.RunSupervised(ctx, in.opts.Exec, command.Spec{
		Name: in.opts.Runtime.Path(),
		Args: []string{""},
		Env:  tgt.env(),
	}, in.opts.PrefixInitTimeout)
	if err != nil {
		return fmt.Errorf("prefix initialization failed: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("prefix initialization exited with code %d", res.Code)
	}
	return nil
}

func (in *Installer) installItem(ctx context.Context, tgt target, item library.Redistributable) bool {
	kind := item.Kind
	if kind == "" {
		kind = library.ClassifyRedistributable(item.Name, item.Path)
	}

	var args []string
	timeout := in.opts.ItemTimeout
	switch kind {
	case library.KindBuiltinVerb:
		args = []string{"winetricks", "-q", item.Name}
	case library.KindRepairTool:
		tool, err := in.repairTool(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to fetch .NET repair tool")
			return false
		}
		args = append([]string{tool}, repairToolArgs...)
		timeout = in.opts.RepairTimeout
	default:
		name, flags := installerCommand(item.Path)
		args = append([]string{name}, flags...)
	}

	spec := command.Spec{
		Name: in.opts.Runtime.Path(),
		Args: args,
		Env:  tgt.env(),
	}
	if kind == library.KindFileInstaller {
		spec.Dir = filepath.Dir(item.Path)
	}
	log.Info().Str("item", item.Name).Str("cmd", spec.String()).Msg("installing redistributable")

	res, err := command.RunSupervised(ctx, in.opts.Exec, spec, timeout)
	switch {
	case errors.Is(err, command.ErrTimedOut):
		log.Error().Str("item", item.Name).Dur("timeout", timeout).Msg("redistributable install timed out")
		return false
	case err != nil:
		log.Error().Err(err).Str("item", item.Name).Msg("redistributable install failed")
		return false
	case !res.Success():
		log.Error().Str("item", item.Name).Int("code", res.Code).Bool("signaled", res.Signaled).
			Msg("redistributable installer exited with an error")
		return false
	}
	return true
}

// repairTool returns the cached repair tool, downloading it on first use.
func (in *Installer) repairTool(ctx context.Context) (string, error) {
	path := filepath.Join(in.opts.ToolsDir, repairToolFile)
	if _, err := in.opts.Fs.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to stat repair tool: %w", err)
	}
	if in.opts.Downloader == nil || in.opts.RepairToolURL == "" {
		return "", errors.New("repair tool download not configured")
	}
	if err := in.opts.Fs.MkdirAll(in.opts.ToolsDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create tools dir: %w", err)
	}
	err := in.opts.Downloader.DownloadFile(ctx, httpclient.DownloadFileArgs{
		Fs:         in.opts.Fs,
		URL:        in.opts.RepairToolURL,
		OutputPath: path,
	})
	if err != nil {
		return "", fmt.Errorf("failed to download repair tool: %w", err)
	}
	return path, nil
}

func (in *Installer) report(appID int, p Progress, onProgress func(Progress)) {
	if onProgress != nil {
		onProgress(p)
	}
	notifications.RedistProgress(in.opts.Notifications, models.RedistProgressParams{
		AppID:           appID,
		Kind:            p.Kind,
		Item:            p.Item,
		ItemSuccess:     p.ItemSuccess,
		Total:           p.Total,
		Completed:       p.Completed,
		Failed:          p.Failed,
		OverallProgress: p.OverallProgress,
	})
}

func (in *Installer) failure(appID int, name string, err error) {
	log.Error().Err(err).Int("appID", appID).Msg("redistributable install failed")
	if name == "" {
		name = fmt.Sprintf("game %d", appID)
	}
	notifications.Error(in.opts.Notifications,
		fmt.Sprintf("Could not install redistributables for %s: %v", name, err))
}
