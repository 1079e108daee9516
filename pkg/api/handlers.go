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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/api/validation"
	"github.com/LodestoneProject/lodestone-core/pkg/downloads"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
	"github.com/LodestoneProject/lodestone-core/pkg/queue"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("error writing response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, models.ErrorObject{Code: status, Message: err.Error()})
}

// statusFor maps core errors to HTTP statuses.
func statusFor(err error) int {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, validation.ErrMissingParams),
		errors.Is(err, validation.ErrInvalidParams),
		errors.Is(err, library.ErrInvalidAppID):
		return http.StatusBadRequest
	case errors.Is(err, downloads.ErrJobNotFound), errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrShortcutNeedsLegacy):
		return http.StatusBadRequest
	case errors.Is(err, downloads.ErrInvalidState), errors.Is(err, queue.ErrAlreadyQueued),
		errors.Is(err, library.ErrExists):
		return http.StatusConflict
	case errors.Is(err, ErrNoRegistrar):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrRegistrationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody[T any](r *http.Request, dest *T) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return validation.ErrInvalidParams
	}
	return validation.ValidateAndUnmarshal(data, dest)
}

func appIDParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "appID"))
	if err != nil || id <= 0 {
		return 0, library.ErrInvalidAppID
	}
	return id, nil
}

func (s *Server) handleListDownloads(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Downloads.List())
}

func (s *Server) handleAddDownload(w http.ResponseWriter, r *http.Request) {
	var params models.NewDownloadParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	req := downloads.Request{
		Name:      params.Name,
		Kind:      queue.Kind(params.Kind),
		StartPart: params.StartPart,
		Parts:     make([]downloads.Part, 0, len(params.Parts)),
	}
	for _, p := range params.Parts {
		req.Parts = append(req.Parts, downloads.Part{URL: p.URL, Path: p.Path, Headers: p.Headers})
	}

	job, err := s.opts.Downloads.Add(s.ctx, req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, queue.ErrAlreadyQueued) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	resp := models.NewDownloadResponse{ID: job.ID()}
	if s.opts.Queue != nil {
		resp.Position, _ = s.opts.Queue.Position(job.ID())
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleControlDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var err error
	switch chi.URLParam(r, "action") {
	case "pause":
		err = s.opts.Downloads.Pause(id)
	case "resume":
		err = s.opts.Downloads.Resume(id)
	default:
		err = s.opts.Downloads.Cancel(id)
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQueue(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Queue == nil {
		writeJSON(w, http.StatusOK, queue.Snapshot{Waiting: []queue.Entry{}})
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Queue.Snapshot())
}

func (s *Server) handleListGames(w http.ResponseWriter, _ *http.Request) {
	recs, err := s.opts.Store.ListAll()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if recs == nil {
		recs = []library.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	appID, err := appIDParam(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	rec, err := s.opts.Store.Load(appID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	} else if rec == nil {
		writeError(w, http.StatusNotFound, library.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRemoveGame(w http.ResponseWriter, r *http.Request) {
	appID, err := appIDParam(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := s.opts.Store.Remove(appID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	appID, err := appIDParam(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	// the game process and any migration must outlive the request
	writeJSON(w, http.StatusOK, s.opts.Launcher.Launch(s.ctx, appID))
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	appID, err := appIDParam(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	var params models.MigrateParams
	if r.ContentLength != 0 {
		if err := decodeBody(r, &params); err != nil && !errors.Is(err, validation.ErrMissingParams) {
			writeError(w, statusFor(err), err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.opts.Migrator.MigrateToUmu(s.ctx, appID, params.LegacyID))
}

func (s *Server) handleInstallRedist(w http.ResponseWriter, r *http.Request) {
	appID, err := appIDParam(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	// progress is pushed on redist.progress
	res := s.opts.Installer.Install(s.ctx, appID, nil)
	writeJSON(w, http.StatusOK, models.InstallResponse{Result: string(res)})
}
