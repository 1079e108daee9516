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

package config

import "strconv"

const DefaultAPIPort = 7498

type API struct {
	Port           *int     `toml:"port,omitempty"`
	Listen         string   `toml:"listen,omitempty"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
}

type Telemetry struct {
	DSN     string `toml:"dsn,omitempty"`
	Enabled bool   `toml:"enabled"`
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiPortLocked()
}

// apiPortLocked returns the API port. Caller must hold mu (read or write).
func (c *Instance) apiPortLocked() int {
	if c.vals.API.Port == nil {
		return DefaultAPIPort
	}
	return *c.vals.API.Port
}

func (c *Instance) SetAPIPort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.API.Port = &port
}

// APIListen is the listen address. The API binds to loopback unless an
// explicit address is configured.
func (c *Instance) APIListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.API.Listen == "" {
		return "127.0.0.1:" + strconv.Itoa(c.apiPortLocked())
	}
	return c.vals.API.Listen
}

func (c *Instance) AllowedOrigins() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.AllowedOrigins
}

func (c *Instance) TelemetryEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry.Enabled && c.vals.Telemetry.DSN != ""
}

func (c *Instance) TelemetryDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry.DSN
}

func (c *Instance) SetTelemetry(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Telemetry.Enabled = enabled
}
