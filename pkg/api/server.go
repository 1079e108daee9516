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

// Package api serves the local HTTP and WebSocket API used by the desktop
// UI.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/api/middleware"
	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/downloads"
	"github.com/LodestoneProject/lodestone-core/pkg/launch"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
	"github.com/LodestoneProject/lodestone-core/pkg/migrate"
	"github.com/LodestoneProject/lodestone-core/pkg/queue"
	"github.com/LodestoneProject/lodestone-core/pkg/redist"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// defaultOrigins cover the UI served from a local dev server or webview.
var defaultOrigins = []string{"http://localhost:*", "http://127.0.0.1:*", "tauri://localhost"}

type Downloads interface {
	Add(ctx context.Context, req downloads.Request) (*downloads.Job, error)
	List() []downloads.Snapshot
	Pause(id string) error
	Resume(id string) error
	Cancel(id string) error
}

type Launcher interface {
	Launch(ctx context.Context, appID int) launch.Result
}

type Migrator interface {
	MigrateToUmu(ctx context.Context, appID int, legacyID string) migrate.Result
}

type Installer interface {
	Install(ctx context.Context, appID int, onProgress func(redist.Progress)) redist.Result
}

type Options struct {
	Downloads Downloads
	Queue     *queue.Queue
	Store     *library.Store
	Launcher  Launcher
	Migrator  Migrator
	Installer Installer
	// Registrar is optional; without it games cannot request a Steam
	// shortcut.
	Registrar Registrar
	Limiter   *middleware.IPRateLimiter
	// Notifications is broadcast to every events WebSocket session.
	Notifications  <-chan models.Notification
	AllowedOrigins []string
}

type Server struct {
	// ctx outlives requests; downloads and installs started through the
	// API run under it.
	ctx    context.Context
	opts   Options
	events *melody.Melody
}

//nolint:gocritic // options struct copied on purpose
func NewServer(ctx context.Context, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = defaultOrigins
	}
	if opts.Limiter == nil {
		opts.Limiter = middleware.NewIPRateLimiter(0, 0, nil)
	}
	s := &Server{ctx: ctx, opts: opts, events: melody.New()}
	s.events.Upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || originAllowed(opts.AllowedOrigins, origin)
	}
	s.events.HandleMessage(handleEventMessage)
	return s
}

// Router builds the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.NoCache)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{},
	}))

	r.Get("/api/events", func(w http.ResponseWriter, r *http.Request) {
		if err := s.events.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling events websocket request")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.HTTPRateLimitMiddleware(s.opts.Limiter))
		r.Use(chimw.Timeout(requestTimeout))

		r.Get("/api/downloads", s.handleListDownloads)
		r.Post("/api/downloads", s.handleAddDownload)
		r.Post("/api/downloads/{id}/{action:pause|resume|cancel}", s.handleControlDownload)
		r.Get("/api/queue", s.handleQueue)

		r.Get("/api/games", s.handleListGames)
		r.Post("/api/games", s.handleAddGame)
		r.Get("/api/games/{appID}", s.handleGetGame)
		r.Post("/api/games/{appID}/version", s.handleUpdateVersion)
		r.Delete("/api/games/{appID}", s.handleRemoveGame)
	})

	// long running, no request timeout. A launch may migrate a prefix or
	// install the runtime first.
	r.Group(func(r chi.Router) {
		r.Use(middleware.HTTPRateLimitMiddleware(s.opts.Limiter))
		r.Post("/api/games/{appID}/launch", s.handleLaunch)
		r.Post("/api/games/{appID}/migrate", s.handleMigrate)
		r.Post("/api/games/{appID}/redistributables", s.handleInstallRedist)
	})

	return r
}

// Serve serves the API on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go s.broadcast(ctx)
	s.opts.Limiter.StartCleanup(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("api server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.events.Close(); err != nil && !errors.Is(err, melody.ErrClosed) {
		log.Warn().Err(err).Msg("error closing websocket sessions")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}

// Start listens on addr and serves until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// originAllowed matches origin against patterns holding at most one '*'.
func originAllowed(patterns []string, origin string) bool {
	origin = strings.ToLower(origin)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if p == "*" || p == origin {
			return true
		}
		prefix, suffix, ok := strings.Cut(p, "*")
		if ok && len(origin) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}
