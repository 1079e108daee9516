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

// Toast types for NotifyParams.
const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyError   = "error"
	NotifyWarning = "warning"
)

type NotifyParams struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

type DownloadQueuedParams struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

type DownloadProgressParams struct {
	ID       string  `json:"id"`
	URL      string  `json:"url"`
	Part     int     `json:"part"`
	Parts    int     `json:"parts"`
	Bytes    int64   `json:"bytes"`
	Total    int64   `json:"total"`
	Progress float64 `json:"progress"`
	Speed    float64 `json:"speed"`
}

// DownloadStatusParams is the payload of paused, resumed, cancelled and
// completed events.
type DownloadStatusParams struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Part   int    `json:"part"`
}

type DownloadErrorParams struct {
	ID    string `json:"id"`
	Error string `json:"error"`
	Part  int    `json:"part"`
}

type GameLaunchedParams struct {
	AppID int    `json:"appId"`
	Mode  string `json:"mode"`
	Pid   int    `json:"pid,omitempty"`
}

type GameExitedParams struct {
	AppID    int    `json:"appId"`
	Code     int    `json:"code"`
	Signaled bool   `json:"signaled"`
	Error    string `json:"error,omitempty"`
}

type RedistProgressParams struct {
	ItemSuccess     *bool   `json:"itemSuccess,omitempty"`
	AppID           int     `json:"appId"`
	Kind            string  `json:"kind"`
	Item            string  `json:"item,omitempty"`
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	OverallProgress float64 `json:"overallProgress"`
}

type LibraryChangedParams struct {
	AppID   int  `json:"appId"`
	Removed bool `json:"removed"`
}
