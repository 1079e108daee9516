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
	DefaultUserAgent        = "Lodestone/1.0 (+https://github.com/LodestoneProject)"
	DefaultRetryAttempts    = 5
	DefaultRetryBaseDelay   = time.Second
	DefaultProgressInterval = 500 * time.Millisecond
)

type Downloads struct {
	UserAgent          string `toml:"user_agent,omitempty"`
	Dir                string `toml:"dir,omitempty"`
	RetryAttempts      *int   `toml:"retry_attempts,omitempty"`
	RetryBaseDelayMs   *int   `toml:"retry_base_delay_ms,omitempty"`
	ProgressIntervalMs *int   `toml:"progress_interval_ms,omitempty"`
}

func (c *Instance) DownloadUserAgent() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Downloads.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.vals.Downloads.UserAgent
}

// DownloadDir is the default destination root for new downloads. Empty
// means callers must pass absolute part paths.
func (c *Instance) DownloadDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Downloads.Dir
}

func (c *Instance) DownloadRetryAttempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Downloads.RetryAttempts == nil || *c.vals.Downloads.RetryAttempts < 1 {
		return DefaultRetryAttempts
	}
	return *c.vals.Downloads.RetryAttempts
}

func (c *Instance) DownloadRetryBaseDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return msOrDefault(c.vals.Downloads.RetryBaseDelayMs, DefaultRetryBaseDelay)
}

func (c *Instance) DownloadProgressInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return msOrDefault(c.vals.Downloads.ProgressIntervalMs, DefaultProgressInterval)
}

func msOrDefault(v *int, def time.Duration) time.Duration {
	if v == nil || *v <= 0 {
		return def
	}
	return time.Duration(*v) * time.Millisecond
}
