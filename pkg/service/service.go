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

// Package service builds the core object graph and runs it until the
// context is cancelled.
package service

import (
	"context"
	"fmt"
	"net"
	"path/filepath"

	"github.com/LodestoneProject/lodestone-core/pkg/api"
	"github.com/LodestoneProject/lodestone-core/pkg/api/middleware"
	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/compat"
	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/LodestoneProject/lodestone-core/pkg/downloads"
	"github.com/LodestoneProject/lodestone-core/pkg/extract"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers/command"
	"github.com/LodestoneProject/lodestone-core/pkg/launch"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
	"github.com/LodestoneProject/lodestone-core/pkg/migrate"
	"github.com/LodestoneProject/lodestone-core/pkg/platforms/shared/steam"
	"github.com/LodestoneProject/lodestone-core/pkg/queue"
	"github.com/LodestoneProject/lodestone-core/pkg/redist"
	"github.com/LodestoneProject/lodestone-core/pkg/service/broker"
	"github.com/LodestoneProject/lodestone-core/pkg/shared/httpclient"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const (
	notificationBuffer = 256
	subscriberBuffer   = 100
	downloadsDir       = "downloads"
)

// Service holds every long-lived component of the core.
type Service struct {
	Store     *library.Store
	Queue     *queue.Queue
	Downloads *downloads.Manager
	Runtime   *compat.Runtime
	Migrator  *migrate.Coordinator
	Launcher  *launch.Resolver
	Installer *redist.Installer
	Registrar *steam.Registrar
	Broker    *broker.Broker

	cfg  *config.Instance
	ns   chan models.Notification
	dirs helpers.Dirs
}

// Options overrides the components New would otherwise create.
type Options struct {
	Exec  command.Executor
	Clock clockwork.Clock
	// SteamDir skips Steam detection when set.
	SteamDir string
}

// New wires the components for cfg. Nothing runs until Run or Serve.
//
//nolint:gocritic // options struct copied on purpose
func New(cfg *config.Instance, dirs helpers.Dirs, opts Options) (*Service, error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	if err := dirs.Ensure(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	if opts.Exec == nil {
		opts.Exec = &command.RealExecutor{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.SteamDir == "" {
		opts.SteamDir = steam.NewClient(steam.Options{CheckFlatpak: true}).FindSteamDir(cfg)
	}
	if opts.SteamDir == "" {
		log.Info().Msg("no Steam installation found, legacy launches disabled")
	}

	fs := afero.NewOsFs()
	ns := make(chan models.Notification, notificationBuffer)
	client := httpclient.NewClientFromConfig(cfg)

	s := &Service{
		cfg:    cfg,
		dirs:   dirs,
		ns:     ns,
		Store:  library.NewStore(fs, dirs.Library),
		Queue:  queue.New(),
		Broker: broker.NewBroker(ns),
	}

	downloadDir := cfg.DownloadDir()
	if downloadDir == "" {
		downloadDir = filepath.Join(dirs.Data, downloadsDir)
	}
	s.Downloads = downloads.NewManager(downloadDir, downloads.OptionsFromConfig(cfg, downloads.Options{
		Fs:            fs,
		Client:        client.Client,
		Queue:         s.Queue,
		Clock:         opts.Clock,
		Notifications: ns,
	}))

	s.Runtime = compat.NewRuntime(compat.RuntimeOptions{
		Fs:         fs,
		Downloader: client,
		Unpacker:   extract.New(opts.Exec),
		Path:       cfg.UmuRuntimePath(),
		ToolsDir:   dirs.Tools,
		ReleaseURL: cfg.UmuReleaseURL(),
	})

	prefixRoot := cfg.PrefixRoot()
	s.Migrator = migrate.NewCoordinator(migrate.Options{
		Fs:            fs,
		Store:         s.Store,
		Notifications: ns,
		PrefixRoot:    prefixRoot,
		SteamDir:      opts.SteamDir,
	})

	s.Launcher = launch.NewResolver(launch.OptionsFromConfig(cfg, launch.Options{
		Store:         s.Store,
		Runtime:       s.Runtime,
		Migrator:      s.Migrator,
		Exec:          opts.Exec,
		Clock:         opts.Clock,
		Notifications: ns,
		SteamDir:      opts.SteamDir,
	}))

	s.Installer = redist.NewInstaller(redist.OptionsFromConfig(cfg, redist.Options{
		Fs:            fs,
		Store:         s.Store,
		Runtime:       s.Runtime,
		Exec:          opts.Exec,
		Downloader:    client,
		Notifications: ns,
		SteamDir:      opts.SteamDir,
		ToolsDir:      dirs.Tools,
	}))

	s.Registrar = steam.NewRegistrar(
		steam.NewClientWithExecutor(steam.Options{}, opts.Exec),
		cfg.ShortcutTool(),
		opts.SteamDir,
	)

	return s, nil
}

// Run listens on the configured API address and serves until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	addr := s.cfg.APIListen()
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the broker, the library watcher and the API on ln. It returns
// once every component has stopped.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	apiNotifications, _ := s.Broker.Subscribe(subscriberBuffer)
	logNotifications, _ := s.Broker.Subscribe(subscriberBuffer, models.NotificationNotify)

	server := api.NewServer(gctx, api.Options{
		Downloads:      s.Downloads,
		Queue:          s.Queue,
		Store:          s.Store,
		Launcher:       s.Launcher,
		Migrator:       s.Migrator,
		Installer:      s.Installer,
		Registrar:      s.Registrar,
		Limiter:        middleware.NewIPRateLimiter(0, 0, nil),
		Notifications:  apiNotifications,
		AllowedOrigins: s.cfg.AllowedOrigins(),
	})

	log.Info().Msg("starting notification broker")
	g.Go(func() error {
		return s.Broker.Run(gctx)
	})

	g.Go(func() error {
		logToasts(logNotifications)
		return nil
	})

	log.Info().Msg("starting library watcher")
	g.Go(func() error {
		err := library.Watch(gctx, s.dirs.Library, s.ns)
		if err != nil {
			// the service keeps working without live library updates
			log.Error().Err(err).Msg("library watcher stopped")
		}
		return nil
	})

	log.Info().Msg("starting API service")
	g.Go(func() error {
		return server.Serve(gctx, ln)
	})

	err := g.Wait()
	log.Info().Msg("service stopped")
	return err //nolint:wrapcheck // already wrapped by the failing component
}

func logToasts(ch <-chan models.Notification) {
	for n := range ch {
		log.Debug().Str("method", n.Method).RawJSON("params", n.Params).Msg("toast")
	}
}
