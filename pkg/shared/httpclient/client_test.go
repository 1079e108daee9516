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

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	last *http.Request
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.last = req
	return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody, Request: req}, nil
}

func TestAuthTransport_SetsUserAgent(t *testing.T) {
	t.Parallel()

	rec := &recordingTransport{}
	tr := &AuthTransport{Base: rec, UserAgent: "lodestone-test"}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://unmatched.invalid/x", http.NoBody)
	require.NoError(t, err)
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "lodestone-test", rec.last.Header.Get("User-Agent"))
	assert.Empty(t, req.Header.Get("User-Agent"), "caller request must not be modified")
}

func TestAuthTransport_KeepsExplicitUserAgent(t *testing.T) {
	t.Parallel()

	rec := &recordingTransport{}
	tr := &AuthTransport{Base: rec, UserAgent: "default"}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://unmatched.invalid/x", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom")
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "custom", rec.last.Header.Get("User-Agent"))
}

//nolint:paralleltest // replaces the held auth configuration
func TestAuthTransport_AppliesHeldCredentials(t *testing.T) {
	config.SetAuth(config.Auth{Creds: map[string]config.CredentialEntry{
		"https://debrid.example.com/rest": {Bearer: "old-key"},
		"https://files.example.com":       {Username: "user", Password: "pass"},
	}})
	t.Cleanup(func() { config.SetAuth(config.Auth{}) })

	rec := &recordingTransport{}
	tr := &AuthTransport{Base: rec}

	do := func(url string) *http.Request {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
		require.NoError(t, err)
		resp, err := tr.RoundTrip(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		return rec.last
	}

	assert.Equal(t, "Bearer old-key", do("https://debrid.example.com/rest/1.0/unrestrict").Header.Get("Authorization"))
	assert.Equal(t, "Basic dXNlcjpwYXNz", do("https://files.example.com/a.bin").Header.Get("Authorization"))
	assert.Empty(t, do("https://debrid.example.com/other").Header.Get("Authorization"))

	// replacing the held configuration takes effect for the next request
	config.SetAuth(config.Auth{Creds: map[string]config.CredentialEntry{
		"https://debrid.example.com/rest": {Bearer: "new-key"},
	}})
	assert.Equal(t, "Bearer new-key", do("https://debrid.example.com/rest/x").Header.Get("Authorization"))
}

func TestDownloadFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("tool-binary"))
	}))
	t.Cleanup(srv.Close)

	client := NewClient("test")

	t.Run("writes_file_via_temp_path", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		err := client.DownloadFile(context.Background(), DownloadFileArgs{
			Fs:         fs,
			URL:        srv.URL + "/tool.exe",
			OutputPath: "/tools/tool.exe",
		})
		require.NoError(t, err)

		data, err := afero.ReadFile(fs, "/tools/tool.exe")
		require.NoError(t, err)
		assert.Equal(t, "tool-binary", string(data))

		exists, err := afero.Exists(fs, "/tools/tool.exe.part")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("fails_on_bad_status", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		err := client.DownloadFile(context.Background(), DownloadFileArgs{
			Fs:         fs,
			URL:        srv.URL + "/missing",
			OutputPath: "/tools/missing.exe",
		})
		require.Error(t, err)

		exists, err := afero.Exists(fs, "/tools/missing.exe")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
