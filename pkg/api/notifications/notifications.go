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

// Package notifications sends typed events to the notification channel.
// Sends never block: a full channel drops the event with a warning.
package notifications

import (
	"encoding/json"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func sendNotification(ns chan<- models.Notification, method string, payload any) {
	var params json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("error marshalling notification params")
			return
		}
		params = data
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification channel full, dropping notification")
	}
}

func DownloadQueued(ns chan<- models.Notification, payload models.DownloadQueuedParams) {
	sendNotification(ns, models.NotificationDownloadQueued, payload)
}

func DownloadProgress(ns chan<- models.Notification, payload models.DownloadProgressParams) {
	sendNotification(ns, models.NotificationDownloadProgress, payload)
}

func DownloadPaused(ns chan<- models.Notification, payload models.DownloadStatusParams) {
	sendNotification(ns, models.NotificationDownloadPaused, payload)
}

func DownloadResumed(ns chan<- models.Notification, payload models.DownloadStatusParams) {
	sendNotification(ns, models.NotificationDownloadResumed, payload)
}

func DownloadCancelled(ns chan<- models.Notification, payload models.DownloadStatusParams) {
	sendNotification(ns, models.NotificationDownloadCancelled, payload)
}

func DownloadCompleted(ns chan<- models.Notification, payload models.DownloadStatusParams) {
	sendNotification(ns, models.NotificationDownloadCompleted, payload)
}

func DownloadError(ns chan<- models.Notification, payload models.DownloadErrorParams) {
	sendNotification(ns, models.NotificationDownloadError, payload)
}

func GameLaunched(ns chan<- models.Notification, payload models.GameLaunchedParams) {
	sendNotification(ns, models.NotificationGameLaunched, payload)
}

func GameExited(ns chan<- models.Notification, payload models.GameExitedParams) {
	sendNotification(ns, models.NotificationGameExited, payload)
}

func RedistProgress(ns chan<- models.Notification, payload models.RedistProgressParams) {
	sendNotification(ns, models.NotificationRedistProgress, payload)
}

func LibraryChanged(ns chan<- models.Notification, payload models.LibraryChangedParams) {
	sendNotification(ns, models.NotificationLibraryChanged, payload)
}

// Notify raises a UI toast. An empty id is replaced with a generated one.
func Notify(ns chan<- models.Notification, kind, message, id string) {
	if id == "" {
		id = uuid.NewString()
	}
	sendNotification(ns, models.NotificationNotify, models.NotifyParams{
		Type:    kind,
		Message: message,
		ID:      id,
	})
}

func Info(ns chan<- models.Notification, message string) {
	Notify(ns, models.NotifyInfo, message, "")
}

func Success(ns chan<- models.Notification, message string) {
	Notify(ns, models.NotifySuccess, message, "")
}

func Warning(ns chan<- models.Notification, message string) {
	Notify(ns, models.NotifyWarning, message, "")
}

func Error(ns chan<- models.Notification, message string) {
	Notify(ns, models.NotifyError, message, "")
}
