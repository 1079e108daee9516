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
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
	"github.com/LodestoneProject/lodestone-core/pkg/platforms/shared/steam"
	"github.com/rs/zerolog/log"
)

var (
	ErrShortcutNeedsLegacy = errors.New("shortcut registration needs the legacy-compat launch mode")
	ErrNoRegistrar         = errors.New("shortcut registration is unavailable")
	ErrRegistrationFailed  = errors.New("shortcut registration failed")
)

// Registrar adds a game to Steam as a non-Steam shortcut and returns the
// shortcut id.
type Registrar interface {
	RegisterShortcut(ctx context.Context, sc steam.Shortcut) (string, error)
}

func recordFromParams(p *models.NewGameParams) *library.Record {
	rec := &library.Record{
		AppID:            p.AppID,
		Name:             p.Name,
		Version:          p.Version,
		Cwd:              p.Cwd,
		LaunchExecutable: p.LaunchExecutable,
		LaunchArguments:  p.LaunchArguments,
		LaunchEnv:        p.LaunchEnv,
		LaunchMode:       library.LaunchMode(p.LaunchMode),
		LegacyShortcutID: p.LegacyShortcutID,
		LegacyMode:       p.LegacyMode || p.LaunchMode == string(library.ModeLegacyCompat),
	}
	if p.Umu != nil {
		umuID := p.Umu.UmuID
		if umuID == "" {
			umuID = library.DefaultUmuID(p.AppID)
		}
		rec.Umu = &library.UmuConfig{
			UmuID:         umuID,
			ProtonVersion: p.Umu.ProtonVersion,
			Store:         p.Umu.Store,
			DllOverrides:  p.Umu.DllOverrides,
		}
	}
	for _, item := range p.Redistributables {
		rec.Redistributables = append(rec.Redistributables, library.NewRedistributable(item.Name, item.Path))
	}
	rec.Normalize()
	return rec
}

// registerShortcut registers rec with Steam and stores the assigned id on
// it.
func (s *Server) registerShortcut(ctx context.Context, rec *library.Record, compatTool string) error {
	if rec.LaunchMode != library.ModeLegacyCompat {
		return ErrShortcutNeedsLegacy
	}
	if s.opts.Registrar == nil {
		return ErrNoRegistrar
	}
	exe := rec.LaunchExecutable
	if !filepath.IsAbs(exe) && rec.Cwd != "" {
		exe = filepath.Join(rec.Cwd, exe)
	}
	id, err := s.opts.Registrar.RegisterShortcut(ctx, steam.Shortcut{
		Name:          rec.Name,
		Exe:           exe,
		StartDir:      rec.Cwd,
		LaunchOptions: rec.LaunchArguments,
		CompatTool:    compatTool,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	rec.LegacyShortcutID = id
	return nil
}

func (s *Server) handleAddGame(w http.ResponseWriter, r *http.Request) {
	var params models.NewGameParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	rec := recordFromParams(&params)

	if !params.Replace {
		existing, err := s.opts.Store.Load(rec.AppID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		} else if existing != nil {
			writeError(w, http.StatusConflict, fmt.Errorf("%w: %d", library.ErrExists, rec.AppID))
			return
		}
	}

	if params.RegisterShortcut {
		if err := s.registerShortcut(r.Context(), rec, params.CompatTool); err != nil {
			log.Error().Err(err).Int("appID", rec.AppID).Msg("shortcut registration failed")
			writeError(w, statusFor(err), err)
			return
		}
	}

	status := http.StatusCreated
	var err error
	if params.Replace {
		status = http.StatusOK
		err = s.opts.Store.Save(rec)
	} else {
		err = s.opts.Store.Create(rec)
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	log.Info().Int("appID", rec.AppID).Str("mode", string(rec.LaunchMode)).Msg("game registered")
	writeJSON(w, status, rec)
}

func (s *Server) handleUpdateVersion(w http.ResponseWriter, r *http.Request) {
	appID, err := appIDParam(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	var params models.UpdateVersionParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	rec, err := s.opts.Store.Update(appID, func(rec *library.Record) error {
		rec.Version = params.Version
		return nil
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
