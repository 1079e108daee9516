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

// DownloadPart is one file of a download request.
type DownloadPart struct {
	Headers map[string]string `json:"headers,omitempty"`
	URL     string            `json:"url" validate:"required,httpurl"`
	Path    string            `json:"path" validate:"required,safepath"`
}

type NewDownloadParams struct {
	Name      string         `json:"name,omitempty"`
	Kind      string         `json:"kind,omitempty" validate:"omitempty,oneof=direct torrent"`
	Parts     []DownloadPart `json:"parts" validate:"required,min=1,dive"`
	StartPart int            `json:"startPart" validate:"gte=0"`
}

type MigrateParams struct {
	LegacyID string `json:"legacyId,omitempty" validate:"omitempty,numeric"`
}

type GameRedistributable struct {
	Name string `json:"name" validate:"required"`
	Path string `json:"path" validate:"required"`
}

type GameUmuConfig struct {
	UmuID         string   `json:"umuId,omitempty"`
	ProtonVersion string   `json:"protonVersion,omitempty"`
	Store         string   `json:"store,omitempty"`
	DllOverrides  []string `json:"dllOverrides,omitempty"`
}

// NewGameParams registers an installed game. Replace overwrites an
// existing record; without it a second insert for the same app id fails.
type NewGameParams struct {
	LaunchEnv        map[string]string     `json:"launchEnv,omitempty"`
	Umu              *GameUmuConfig        `json:"umu,omitempty"`
	Name             string                `json:"name" validate:"required"`
	Version          string                `json:"version,omitempty"`
	Cwd              string                `json:"cwd,omitempty"`
	LaunchExecutable string                `json:"launchExecutable" validate:"required"`
	LaunchArguments  string                `json:"launchArguments,omitempty"`
	LaunchMode       string                `json:"launchMode,omitempty" validate:"omitempty,oneof=native legacy-compat"`
	LegacyShortcutID string                `json:"legacyShortcutId,omitempty" validate:"omitempty,numeric"`
	CompatTool       string                `json:"compatTool,omitempty"`
	Redistributables []GameRedistributable `json:"redistributables,omitempty" validate:"dive"`
	AppID            int                   `json:"appID" validate:"gte=1"`
	LegacyMode       bool                  `json:"legacyMode,omitempty"`
	RegisterShortcut bool                  `json:"registerShortcut,omitempty"`
	Replace          bool                  `json:"replace,omitempty"`
}

type UpdateVersionParams struct {
	Version string `json:"version" validate:"required"`
}
