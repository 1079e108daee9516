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

import (
	"maps"
	"net/url"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// CredentialEntry holds authentication credentials for a URL prefix. A
// bearer token takes precedence over a username/password pair.
type CredentialEntry struct {
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	Bearer   string `toml:"bearer,omitempty"`
}

// schemeAliases maps protocol variants to their canonical form.
var schemeAliases = map[string]string{
	"ws":  "http",
	"wss": "https",
}

// authRootFormat is the flat format: ["url"] at root level
type authRootFormat map[string]CredentialEntry

// authCredsFormat is the wrapped format: [creds."url"]
type authCredsFormat struct {
	Creds map[string]CredentialEntry `toml:"creds"`
}

// LoadAuthFromData parses auth.toml data. Both supported formats are
// merged, entries in the creds table win.
//
// Supported formats:
//   - Root level: ["https://api.example.com"]
//   - Creds wrapper: [creds."https://api.example.com"]
func LoadAuthFromData(data []byte) map[string]CredentialEntry {
	result := make(map[string]CredentialEntry)

	var root authRootFormat
	if err := toml.Unmarshal(data, &root); err == nil {
		for k, v := range root {
			// "creds" is captured as a key when the wrapped table is present
			if k != "creds" {
				result[k] = v
			}
		}
	}

	var creds authCredsFormat
	if err := toml.Unmarshal(data, &creds); err == nil {
		maps.Copy(result, creds.Creds)
	}

	return result
}

func normalizeScheme(scheme string) string {
	lower := strings.ToLower(scheme)
	if canonical, ok := schemeAliases[lower]; ok {
		return canonical
	}
	return lower
}

// LookupAuth finds credentials for a URL. Entries match when the scheme
// (after alias normalization) and host are equal and the request path
// starts with the entry path. The longest matching path wins. Entries
// without a scheme ("host:port") match any scheme and rank below every
// scheme match.
func LookupAuth(auth Auth, reqURL string) *CredentialEntry {
	if len(auth.Creds) == 0 {
		return nil
	}

	u, err := url.Parse(reqURL)
	if err != nil {
		log.Warn().Msgf("invalid auth request url: %s", reqURL)
		return nil
	}

	var best *CredentialEntry
	bestLen := -1
	for k, v := range auth.Creds {
		if !strings.Contains(k, "://") {
			continue
		}
		defURL, err := url.Parse(k)
		if err != nil {
			log.Error().Msgf("invalid auth config url: %s", k)
			continue
		}
		if normalizeScheme(defURL.Scheme) != normalizeScheme(u.Scheme) ||
			!strings.EqualFold(defURL.Host, u.Host) ||
			!strings.HasPrefix(u.Path, defURL.Path) {
			continue
		}
		if len(defURL.Path) > bestLen {
			entry := v
			best = &entry
			bestLen = len(defURL.Path)
		}
	}
	if best != nil {
		return best
	}

	for k, v := range auth.Creds {
		if strings.Contains(k, "://") {
			continue
		}
		if strings.EqualFold(k, u.Host) {
			return &v
		}
	}

	return nil
}
