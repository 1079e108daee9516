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

// Package library persists one JSON record per installed game.
package library

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// LaunchMode selects how a game is started.
type LaunchMode string

const (
	ModeNative        LaunchMode = "native"
	ModeLegacyCompat  LaunchMode = "legacy-compat"
	ModeUnifiedCompat LaunchMode = "unified-compat"
)

// RedistKind tells the installer how to install a redistributable.
type RedistKind string

const (
	// KindBuiltinVerb is installed by winetricks using Name as the verb.
	KindBuiltinVerb RedistKind = "builtin-verb"
	// KindRepairTool runs the .NET repair utility.
	KindRepairTool RedistKind = "repair-tool"
	// KindFileInstaller runs the installer executable at Path.
	KindFileInstaller RedistKind = "file-installer"
)

const (
	winetricksPath  = "winetricks"
	repairToolPath  = "microsoft"
	repairToolName  = "dotnet-repair"
	umuIDPrefix     = "umu-"
	recordExtension = ".json"
)

// Redistributable is one runtime dependency queued for installation.
type Redistributable struct {
	Name string     `json:"name"`
	Path string     `json:"path"`
	Kind RedistKind `json:"kind"`
}

// ClassifyRedistributable decides the kind of an entry from the path
// conventions used by older records.
func ClassifyRedistributable(name, path string) RedistKind {
	switch {
	case path == winetricksPath:
		return KindBuiltinVerb
	case path == repairToolPath && name == repairToolName:
		return KindRepairTool
	default:
		return KindFileInstaller
	}
}

// NewRedistributable returns a classified entry.
func NewRedistributable(name, path string) Redistributable {
	return Redistributable{Name: name, Path: path, Kind: ClassifyRedistributable(name, path)}
}

func (r *Redistributable) UnmarshalJSON(data []byte) error {
	type plain Redistributable
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to decode redistributable: %w", err)
	}
	*r = Redistributable(p)
	if r.Kind == "" {
		r.Kind = ClassifyRedistributable(r.Name, r.Path)
	}
	return nil
}

// UmuConfig configures the unified launcher for a game.
type UmuConfig struct {
	UmuID          string   `json:"umuId"`
	ProtonVersion  string   `json:"protonVersion,omitempty"`
	Store          string   `json:"store,omitempty"`
	WinePrefixPath string   `json:"winePrefixPath,omitempty"`
	DllOverrides   []string `json:"dllOverrides,omitempty"`
}

// Record is the persisted state of one installed game.
type Record struct {
	// LaunchEnv is nil for records saved before env was split from the
	// launch arguments. An empty map is kept as such.
	LaunchEnv        map[string]string `json:"launchEnv"`
	Umu              *UmuConfig        `json:"umu,omitempty"`
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Cwd              string            `json:"cwd"`
	LaunchExecutable string            `json:"launchExecutable"`
	LaunchArguments  string            `json:"launchArguments,omitempty"`
	LaunchMode       LaunchMode        `json:"launchMode,omitempty"`
	LegacyShortcutID string            `json:"legacyShortcutId,omitempty"`
	Redistributables []Redistributable `json:"redistributables,omitempty"`
	AppID            int               `json:"appID"`
	LegacyMode       bool              `json:"legacyMode,omitempty"`
}

// DefaultUmuID is the identifier synthesized for games without one.
func DefaultUmuID(appID int) string {
	return fmt.Sprintf("%s%d", umuIDPrefix, appID)
}

// Decode parses a record and fills in fields missing from older
// documents.
func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	rec.Normalize()
	return &rec, nil
}

// Normalize fills in the launch mode and redistributable kinds when they
// are missing. Values already set are kept.
func (r *Record) Normalize() {
	if r.LaunchMode == "" {
		r.LaunchMode = inferMode(r, runtime.GOOS)
	}
	for i := range r.Redistributables {
		item := &r.Redistributables[i]
		if item.Kind == "" {
			item.Kind = ClassifyRedistributable(item.Name, item.Path)
		}
	}
}

// Encode renders a record as indented JSON.
func Encode(rec *Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return append(data, '\n'), nil
}

func inferMode(rec *Record, goos string) LaunchMode {
	switch {
	case rec.Umu != nil:
		return ModeUnifiedCompat
	case rec.LegacyMode && goos == "linux":
		return ModeLegacyCompat
	default:
		return ModeNative
	}
}

// Mode resolves the mode a record launches in. Compatibility modes fall
// back to native when the platform cannot run them.
func (r *Record) Mode(compatSupported bool) LaunchMode {
	if !compatSupported {
		return ModeNative
	}
	switch r.LaunchMode {
	case ModeUnifiedCompat:
		if r.Umu != nil {
			return ModeUnifiedCompat
		}
		return ModeNative
	case ModeLegacyCompat:
		return ModeLegacyCompat
	default:
		return ModeNative
	}
}

// NeedsMigration is true for records that carry a launcher configuration
// but still use the legacy prefix.
func (r *Record) NeedsMigration() bool {
	return r.LegacyMode && r.Umu != nil
}
