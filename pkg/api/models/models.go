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

package models

import (
	"encoding/json"
)

// Notification methods pushed to UI clients. The set is closed; every
// event the core emits uses one of these.
const (
	NotificationDownloadQueued    = "download.queued"
	NotificationDownloadProgress  = "download.progress"
	NotificationDownloadPaused    = "download.paused"
	NotificationDownloadResumed   = "download.resumed"
	NotificationDownloadCancelled = "download.cancelled"
	NotificationDownloadCompleted = "download.completed"
	NotificationDownloadError     = "download.error"
	NotificationGameLaunched      = "game.launched"
	NotificationGameExited        = "game.exited"
	NotificationRedistProgress    = "redist.progress"
	NotificationLibraryChanged    = "library.changed"
	NotificationNotify            = "notify"
)

// AllNotifications lists every notification method.
var AllNotifications = []string{
	NotificationDownloadQueued,
	NotificationDownloadProgress,
	NotificationDownloadPaused,
	NotificationDownloadResumed,
	NotificationDownloadCancelled,
	NotificationDownloadCompleted,
	NotificationDownloadError,
	NotificationGameLaunched,
	NotificationGameExited,
	NotificationRedistProgress,
	NotificationLibraryChanged,
	NotificationNotify,
}

type Notification struct {
	Method string
	Params json.RawMessage
}

// NotificationObject is the JSON-RPC 2.0 notification frame sent over the
// events WebSocket.
type NotificationObject struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ErrorObject is the error body of a failed REST call.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
