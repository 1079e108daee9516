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
	"bytes"
	"context"
	"encoding/json"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

// broadcast forwards notifications to every events session as JSON-RPC
// notifications until ctx is done or the source closes.
func (s *Server) broadcast(ctx context.Context) {
	if s.opts.Notifications == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-s.opts.Notifications:
			if !ok {
				return
			}
			data, err := encodeNotification(notif)
			if err != nil {
				log.Error().Err(err).Str("method", notif.Method).Msg("marshalling notification")
				continue
			}
			if err := s.events.Broadcast(data); err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

func encodeNotification(notif models.Notification) ([]byte, error) {
	//nolint:wrapcheck // caller logs
	return json.Marshal(models.NotificationObject{
		JSONRPC: "2.0",
		Method:  notif.Method,
		Params:  notif.Params,
	})
}

// handleEventMessage answers heartbeats. The events socket is push only.
func handleEventMessage(session *melody.Session, msg []byte) {
	if bytes.Equal(bytes.TrimSpace(msg), []byte("ping")) {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}
	log.Debug().Int("size", len(msg)).Msg("ignoring message on events socket")
}
