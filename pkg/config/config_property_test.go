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
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// TestPropertyLookupAuthEmptyAlwaysNil verifies empty auth returns nil.
func TestPropertyLookupAuthEmptyAlwaysNil(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		url := rapid.StringMatching(`https?://[a-z]+\.[a-z]+(/[a-z]*)?`).Draw(t, "url")

		result := LookupAuth(Auth{}, url)
		if result != nil {
			t.Fatalf("Empty auth should return nil, got %v for URL %q", result, url)
		}
	})
}

// TestPropertyLookupAuthPrefixMatch verifies any path below a configured
// prefix resolves to that entry.
func TestPropertyLookupAuthPrefixMatch(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		host := rapid.StringMatching(`[a-z]{3,10}`).Draw(t, "host")
		token := rapid.StringMatching(`[a-zA-Z0-9]{8,16}`).Draw(t, "token")
		suffix := rapid.StringMatching(`(/[a-z0-9]{1,8}){0,4}`).Draw(t, "suffix")

		configURL := "https://" + host + ".com/api"
		auth := Auth{Creds: map[string]CredentialEntry{configURL: {Bearer: token}}}

		result := LookupAuth(auth, configURL+suffix)
		if result == nil {
			t.Fatalf("Expected match for URL %q", configURL+suffix)
			return
		}
		if result.Bearer != token {
			t.Fatalf("Token mismatch: expected %s, got %s", token, result.Bearer)
		}
	})
}

// TestPropertyLookupAuthCaseInsensitiveHost verifies host matching is case-insensitive.
func TestPropertyLookupAuthCaseInsensitiveHost(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		host := rapid.StringMatching(`[a-z]{3,10}`).Draw(t, "host")

		auth := Auth{Creds: map[string]CredentialEntry{
			"https://" + host + ".com": {Username: "u"},
		}}

		result := LookupAuth(auth, "https://"+strings.ToUpper(host)+".COM/file")
		if result == nil {
			t.Fatalf("Expected case-insensitive match for host %q", host)
		}
	})
}
