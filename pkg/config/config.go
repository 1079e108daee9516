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

// Package config holds the service settings read from lodestone.toml and
// the credentials read from auth.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/LodestoneProject/lodestone-core/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "LODESTONE_CFG"
)

var (
	ErrSchemaMismatch = errors.New("schema version mismatch")
	ErrNoConfigPath   = errors.New("config path not set")
)

type Values struct {
	Downloads    Downloads `toml:"downloads,omitempty"`
	Compat       Compat    `toml:"compat,omitempty"`
	Redist       Redist    `toml:"redist,omitempty"`
	API          API       `toml:"api,omitempty"`
	Telemetry    Telemetry `toml:"telemetry,omitempty"`
	ConfigSchema int       `toml:"config_schema"`
	DebugLogging bool      `toml:"debug_logging"`
}

// Auth is the held credential configuration, keyed by URL prefix.
type Auth struct {
	Creds map[string]CredentialEntry `toml:"creds,omitempty"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
}

// Instance is safe for concurrent use. Setters change the in-memory
// values only; call Save to persist them.
type Instance struct {
	cfgPath  string
	authPath string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

var authCfg atomic.Pointer[Auth]

// GetAuthCfg returns the currently held auth configuration.
func GetAuthCfg() Auth {
	if auth := authCfg.Load(); auth != nil {
		return *auth
	}
	return Auth{}
}

// SetAuth replaces the held auth configuration. Requests started after the
// call see the new credentials.
func SetAuth(auth Auth) {
	authCfg.Store(&auth)
}

// NewConfig loads the config file in configDir, or the file named by
// LODESTONE_CFG, writing defaults first when it does not exist yet.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	if cfgPath != "" {
		log.Debug().Msgf("using config path from %s: %s", CfgEnv, cfgPath)
	} else {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := &Instance{
		cfgPath:  cfgPath,
		authPath: filepath.Join(filepath.Dir(cfgPath), AuthFile),
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", cfgPath).Msg("writing default config")
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeValues lays data over defaults so keys missing from the file keep
// their default value.
//
//nolint:gocritic // config struct copied for immutability
func decodeValues(data []byte, defaults Values) (Values, error) {
	vals := defaults
	if err := toml.Unmarshal(data, &vals); err != nil {
		return Values{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if vals.ConfigSchema != SchemaVersion {
		return Values{}, fmt.Errorf("%w: got %d, expecting %d",
			ErrSchemaMismatch, vals.ConfigSchema, SchemaVersion)
	}
	return vals, nil
}

// Load rereads the config file and, when present, the auth file. The held
// values are only replaced when both parse.
func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return ErrNoConfigPath
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	vals, err := decodeValues(data, c.defaults)
	if err != nil {
		log.Error().Err(err).Str("path", c.cfgPath).Msg("invalid config file")
		return err
	}

	authData, err := os.ReadFile(c.authPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read auth file: %w", err)
	default:
		creds := LoadAuthFromData(authData)
		log.Info().Msgf("loaded %d auth entries", len(creds))
		SetAuth(Auth{Creds: creds})
	}

	c.vals = vals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return ErrNoConfigPath
	}

	c.vals.ConfigSchema = SchemaVersion
	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return writeFileAtomic(c.cfgPath, data)
}

// SaveAuth writes auth to auth.toml next to the config file and makes it
// the held configuration.
func (c *Instance) SaveAuth(auth Auth) error {
	c.mu.RLock()
	authPath := c.authPath
	c.mu.RUnlock()

	data, err := toml.Marshal(&auth)
	if err != nil {
		return fmt.Errorf("failed to marshal auth: %w", err)
	}
	if err := writeFileAtomic(authPath, data); err != nil {
		return err
	}
	SetAuth(auth)
	return nil
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory, so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

// ConfigPath returns the path of the loaded config file.
func (c *Instance) ConfigPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}
