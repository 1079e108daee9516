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

import "time"

const (
	DefaultRedistItemTimeout   = 10 * time.Minute
	DefaultRedistRepairTimeout = 5 * time.Minute
	DefaultPrefixInitTimeout   = 5 * time.Minute
	DefaultRepairToolURL       = "https://download.microsoft.com/download/2/B/D/" +
		"2BDE5459-2225-48B8-830C-AE19CAF038F1/NetFxRepairTool.exe"
)

type Redist struct {
	RepairToolURL         string `toml:"repair_tool_url,omitempty"`
	ItemTimeoutSeconds    *int   `toml:"item_timeout_seconds,omitempty"`
	RepairTimeoutSeconds  *int   `toml:"repair_timeout_seconds,omitempty"`
	PrefixInitTimeoutSecs *int   `toml:"prefix_init_timeout_seconds,omitempty"`
}

func (c *Instance) RedistItemTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return secondsOrDefault(c.vals.Redist.ItemTimeoutSeconds, DefaultRedistItemTimeout)
}

func (c *Instance) RedistRepairTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return secondsOrDefault(c.vals.Redist.RepairTimeoutSeconds, DefaultRedistRepairTimeout)
}

func (c *Instance) PrefixInitTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return secondsOrDefault(c.vals.Redist.PrefixInitTimeoutSecs, DefaultPrefixInitTimeout)
}

func (c *Instance) RepairToolURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Redist.RepairToolURL == "" {
		return DefaultRepairToolURL
	}
	return c.vals.Redist.RepairToolURL
}

func secondsOrDefault(v *int, def time.Duration) time.Duration {
	if v == nil || *v <= 0 {
		return def
	}
	return time.Duration(*v) * time.Second
}
