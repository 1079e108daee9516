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

// Package helpers provides testing utilities shared by package tests.
//
// The API helpers start an httptest server around a handler and read
// JSON-RPC notifications from its events WebSocket:
//
//	srv := helpers.NewAPITestServer(t, server.Router())
//	conn := helpers.DialEvents(t, srv, "/api/events")
//	n := helpers.ReadNotification(t, conn, time.Second)
package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// NewAPITestServer serves handler until the test ends.
func NewAPITestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// DialEvents opens a WebSocket to path on srv.
func DialEvents(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// ReadNotification reads the next JSON-RPC notification from conn.
func ReadNotification(t *testing.T, conn *websocket.Conn, timeout time.Duration) models.NotificationObject {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var n models.NotificationObject
	require.NoError(t, json.Unmarshal(msg, &n))
	return n
}
