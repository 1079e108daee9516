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

package steam

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LodestoneProject/lodestone-core/pkg/helpers/command"
	"github.com/rs/zerolog/log"
)

// ErrNoShortcutTool is returned when no registration tool is configured.
var ErrNoShortcutTool = errors.New("no shortcut registration tool configured")

// ErrNoSteamDir is returned when no Steam installation was found.
var ErrNoSteamDir = errors.New("no Steam installation found")

// Shortcut describes a non-Steam game to register.
type Shortcut struct {
	Name          string
	Exe           string
	StartDir      string
	LaunchOptions string
	Icon          string
	CompatTool    string
}

// ArgBuilder assembles an argument vector. Values are never joined into a
// shell string; String quotes them for display only.
type ArgBuilder struct {
	name string
	args []string
}

func NewArgBuilder(name string) *ArgBuilder {
	return &ArgBuilder{name: name}
}

// Arg appends a positional argument.
func (b *ArgBuilder) Arg(v string) *ArgBuilder {
	b.args = append(b.args, v)
	return b
}

// Opt appends "--key=value".
func (b *ArgBuilder) Opt(key, value string) *ArgBuilder {
	b.args = append(b.args, "--"+key+"="+value)
	return b
}

// OptIf appends "--key=value" when value is not empty.
func (b *ArgBuilder) OptIf(key, value string) *ArgBuilder {
	if value == "" {
		return b
	}
	return b.Opt(key, value)
}

func (b *ArgBuilder) Name() string {
	return b.name
}

func (b *ArgBuilder) Args() []string {
	return append([]string(nil), b.args...)
}

func (b *ArgBuilder) String() string {
	parts := make([]string, 0, len(b.args)+1)
	parts = append(parts, command.Quote(b.name))
	for _, a := range b.args {
		parts = append(parts, command.Quote(a))
	}
	return strings.Join(parts, " ")
}

// ShortcutArgs builds the registration command for sc.
func ShortcutArgs(tool string, sc Shortcut) *ArgBuilder {
	return NewArgBuilder(tool).
		Arg("addnonsteamgame").
		Opt("appname", sc.Name).
		Opt("exepath", sc.Exe).
		Opt("startdir", sc.StartDir).
		OptIf("launchoptions", sc.LaunchOptions).
		OptIf("iconpath", sc.Icon).
		OptIf("compatibilitytool", sc.CompatTool)
}

// RegisterShortcut adds sc to Steam with tool and returns the id Steam
// assigned to it.
func (c *Client) RegisterShortcut(ctx context.Context, tool, steamDir string, sc Shortcut) (string, error) {
	if tool == "" {
		return "", ErrNoShortcutTool
	}
	b := ShortcutArgs(tool, sc)
	log.Info().Str("cmd", b.String()).Msg("registering Steam shortcut")
	if err := c.cmd.Run(ctx, b.Name(), b.Args()...); err != nil {
		return "", fmt.Errorf("failed to register shortcut %q: %w", sc.Name, err)
	}
	return FindShortcutID(steamDir, sc.Name)
}

// Registrar registers shortcuts with a fixed tool and Steam directory.
type Registrar struct {
	client   *Client
	tool     string
	steamDir string
}

func NewRegistrar(client *Client, tool, steamDir string) *Registrar {
	return &Registrar{client: client, tool: tool, steamDir: steamDir}
}

func (r *Registrar) RegisterShortcut(ctx context.Context, sc Shortcut) (string, error) {
	if r.steamDir == "" {
		return "", ErrNoSteamDir
	}
	return r.client.RegisterShortcut(ctx, r.tool, r.steamDir, sc)
}
