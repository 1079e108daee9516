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

package client

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/api"
	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/api/notifications"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers/syncutil"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   string
}

type recorder struct {
	calls []recorded
	mu    syncutil.Mutex
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.calls...)
}

func newRecordingServer(t *testing.T, status int, response string) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.calls = append(rec.calls, recorded{method: r.Method, path: r.URL.Path, body: string(body)})
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, srv.Client())
	require.NoError(t, err)
	return c, rec
}

func TestClient_Launch(t *testing.T) {
	t.Parallel()
	c, calls := newRecordingServer(t, http.StatusOK, `{"success": false, "error": "boom"}`)

	res, err := c.Launch(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)
	assert.Equal(t, []recorded{{method: http.MethodPost, path: "/api/games/7/launch"}}, calls.all())
}

func TestClient_Migrate(t *testing.T) {
	t.Parallel()
	c, calls := newRecordingServer(t, http.StatusOK, `{"success": true, "prefixPath": "/p"}`)

	res, err := c.Migrate(context.Background(), 7, "3000000007")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "/p", res.PrefixPath)
	require.Len(t, calls.all(), 1)
	assert.Equal(t, "/api/games/7/migrate", calls.all()[0].path)
	assert.JSONEq(t, `{"legacyId": "3000000007"}`, calls.all()[0].body)
}

func TestClient_AddDownload(t *testing.T) {
	t.Parallel()
	c, calls := newRecordingServer(t, http.StatusAccepted, `{"id": "abc", "position": 2}`)

	res, err := c.AddDownload(context.Background(), models.NewDownloadParams{
		Parts: []models.DownloadPart{{URL: "https://a.b/c", Path: "c"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.NewDownloadResponse{ID: "abc", Position: 2}, res)
	assert.JSONEq(t, `{"parts": [{"url": "https://a.b/c", "path": "c"}], "startPart": 0}`, calls.all()[0].body)
}

func TestClient_AddGame(t *testing.T) {
	t.Parallel()
	c, calls := newRecordingServer(t, http.StatusCreated,
		`{"appID": 5, "name": "Five", "launchMode": "native", "legacyShortcutId": "3000000005"}`)

	rec, err := c.AddGame(context.Background(), models.NewGameParams{
		AppID:            5,
		Name:             "Five",
		LaunchExecutable: "/five",
		RegisterShortcut: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "3000000005", rec.LegacyShortcutID)
	require.Len(t, calls.all(), 1)
	assert.Equal(t, "/api/games", calls.all()[0].path)
	assert.JSONEq(t,
		`{"appID": 5, "name": "Five", "launchExecutable": "/five", "registerShortcut": true}`,
		calls.all()[0].body)
}

func TestClient_UpdateVersion(t *testing.T) {
	t.Parallel()
	c, calls := newRecordingServer(t, http.StatusOK, `{"appID": 5, "version": "2.0"}`)

	rec, err := c.UpdateVersion(context.Background(), 5, "2.0")
	require.NoError(t, err)
	assert.Equal(t, "2.0", rec.Version)
	assert.Equal(t, "/api/games/5/version", calls.all()[0].path)
	assert.JSONEq(t, `{"version": "2.0"}`, calls.all()[0].body)
}

func TestClient_ControlDownload(t *testing.T) {
	t.Parallel()
	c, calls := newRecordingServer(t, http.StatusNoContent, "")

	require.NoError(t, c.ControlDownload(context.Background(), "abc", "pause"))
	assert.Equal(t, "/api/downloads/abc/pause", calls.all()[0].path)
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	t.Run("error_object", func(t *testing.T) {
		t.Parallel()
		c, _ := newRecordingServer(t, http.StatusNotFound, `{"code": 404, "message": "download job not found: x"}`)
		err := c.ControlDownload(context.Background(), "x", "cancel")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
		assert.Equal(t, "download job not found: x", apiErr.Message)
	})

	t.Run("plain_text", func(t *testing.T) {
		t.Parallel()
		c, _ := newRecordingServer(t, http.StatusTooManyRequests, "Too Many Requests\n")
		_, err := c.Games(context.Background())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Too Many Requests", apiErr.Message)
	})
}

func TestEvents_Wait(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 8)
	srv := api.NewServer(context.Background(), api.Options{
		Store:         library.NewStore(afero.NewMemMapFs(), "/library"),
		Notifications: ns,
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx, ln) }()

	c, err := New("http://"+ln.Addr().String(), nil)
	require.NoError(t, err)

	var events *Events
	require.Eventually(t, func() bool {
		events, err = c.Events(ctx)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	t.Cleanup(func() { _ = events.Close() })

	// keep publishing until the session is registered
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(20 * time.Millisecond):
				notifications.Info(ns, "noise")
				notifications.GameExited(ns, models.GameExitedParams{AppID: 7, Code: 1})
			}
		}
	}()

	n, err := events.Wait(ctx, 2*time.Second, MethodIs(models.NotificationGameExited))
	require.NoError(t, err)
	var exited models.GameExitedParams
	require.NoError(t, json.Unmarshal(n.Params, &exited))
	assert.Equal(t, 7, exited.AppID)
	assert.Equal(t, 1, exited.Code)
}

func TestEvents_WaitTimeout(t *testing.T) {
	t.Parallel()

	srv := api.NewServer(context.Background(), api.Options{})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	c, err := New(ts.URL, nil)
	require.NoError(t, err)
	events, err := c.Events(context.Background())
	require.NoError(t, err)

	_, err = events.Wait(context.Background(), 50*time.Millisecond, MethodIs(models.NotificationGameExited))
	require.ErrorIs(t, err, ErrRequestTimeout)
}
