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

// Package client talks to a running Lodestone service over its local API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/LodestoneProject/lodestone-core/pkg/downloads"
	"github.com/LodestoneProject/lodestone-core/pkg/launch"
	"github.com/LodestoneProject/lodestone-core/pkg/library"
	"github.com/LodestoneProject/lodestone-core/pkg/migrate"
	"github.com/LodestoneProject/lodestone-core/pkg/queue"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrRequestCancelled = errors.New("request cancelled")
)

const EventsPath = "/api/events"

// APIError is a non-2xx answer from the service.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	http *http.Client
	base *url.URL
}

// New creates a client for the service at baseURL, e.g.
// "http://127.0.0.1:7498".
func New(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{base: u, http: hc}, nil
}

// NewLocal creates a client for the service configured in cfg.
func NewLocal(cfg *config.Instance) (*Client, error) {
	return New("http://"+cfg.APIListen(), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), rd)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ErrRequestCancelled
		}
		return fmt.Errorf("error calling %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		var e models.ErrorObject
		if json.NewDecoder(resp.Body).Decode(&e) != nil || e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

func gamePath(appID int, action string) string {
	return "/api/games/" + strconv.Itoa(appID) + "/" + action
}

func (c *Client) Launch(ctx context.Context, appID int) (launch.Result, error) {
	var res launch.Result
	err := c.do(ctx, http.MethodPost, gamePath(appID, "launch"), nil, &res)
	return res, err
}

func (c *Client) Migrate(ctx context.Context, appID int, legacyID string) (migrate.Result, error) {
	var res migrate.Result
	err := c.do(ctx, http.MethodPost, gamePath(appID, "migrate"), models.MigrateParams{LegacyID: legacyID}, &res)
	return res, err
}

func (c *Client) InstallRedist(ctx context.Context, appID int) (string, error) {
	var res models.InstallResponse
	err := c.do(ctx, http.MethodPost, gamePath(appID, "redistributables"), nil, &res)
	return res.Result, err
}

func (c *Client) Games(ctx context.Context) ([]library.Record, error) {
	var recs []library.Record
	err := c.do(ctx, http.MethodGet, "/api/games", nil, &recs)
	return recs, err
}

// AddGame registers an installed game and returns the stored record.
func (c *Client) AddGame(ctx context.Context, params models.NewGameParams) (library.Record, error) {
	var rec library.Record
	err := c.do(ctx, http.MethodPost, "/api/games", params, &rec)
	return rec, err
}

func (c *Client) UpdateVersion(ctx context.Context, appID int, version string) (library.Record, error) {
	var rec library.Record
	err := c.do(ctx, http.MethodPost, gamePath(appID, "version"), models.UpdateVersionParams{Version: version}, &rec)
	return rec, err
}

func (c *Client) AddDownload(
	ctx context.Context,
	params models.NewDownloadParams,
) (models.NewDownloadResponse, error) {
	var res models.NewDownloadResponse
	err := c.do(ctx, http.MethodPost, "/api/downloads", params, &res)
	return res, err
}

func (c *Client) Downloads(ctx context.Context) ([]downloads.Snapshot, error) {
	var snaps []downloads.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/downloads", nil, &snaps)
	return snaps, err
}

// ControlDownload pauses, resumes or cancels job id.
func (c *Client) ControlDownload(ctx context.Context, id, action string) error {
	return c.do(ctx, http.MethodPost, "/api/downloads/"+url.PathEscape(id)+"/"+action, nil, nil)
}

func (c *Client) Queue(ctx context.Context) (queue.Snapshot, error) {
	var snap queue.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/queue", nil, &snap)
	return snap, err
}

// Events connects to the events socket. Call it before triggering the
// action whose notifications are awaited.
func (c *Client) Events(ctx context.Context) (*Events, error) {
	u := *c.base
	u.Scheme = "ws"
	if c.base.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path = EventsPath

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("error connecting to events: %w", err)
	}
	return &Events{conn: conn}, nil
}

// Events is an open events subscription.
type Events struct {
	conn *websocket.Conn
}

func (e *Events) Close() error {
	//nolint:wrapcheck // close errors are only logged
	return e.conn.Close()
}

// Wait blocks until a notification accepted by match arrives. A zero
// timeout uses the default request timeout, a negative one waits forever.
func (e *Events) Wait(
	ctx context.Context,
	timeout time.Duration,
	match func(models.NotificationObject) bool,
) (models.NotificationObject, error) {
	type result struct {
		err   error
		notif models.NotificationObject
	}
	done := make(chan result, 1)

	go func() {
		for {
			_, message, err := e.conn.ReadMessage()
			if err != nil {
				done <- result{err: fmt.Errorf("error reading events: %w", err)}
				return
			}
			var n models.NotificationObject
			if err := json.Unmarshal(message, &n); err != nil || n.JSONRPC != "2.0" {
				continue
			}
			if match(n) {
				done <- result{notif: n}
				return
			}
		}
	}()

	var timerChan <-chan time.Time
	switch {
	case timeout == 0:
		timer := time.NewTimer(config.APIRequestTimeout)
		defer timer.Stop()
		timerChan = timer.C
	case timeout > 0:
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerChan = timer.C
	}
	// or else leave chan nil, which will never receive

	select {
	case r := <-done:
		return r.notif, r.err
	case <-timerChan:
		e.closeQuietly()
		return models.NotificationObject{}, ErrRequestTimeout
	case <-ctx.Done():
		e.closeQuietly()
		return models.NotificationObject{}, ErrRequestCancelled
	}
}

func (e *Events) closeQuietly() {
	if err := e.conn.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing websocket")
	}
}

// MethodIs matches notifications with one of methods.
func MethodIs(methods ...string) func(models.NotificationObject) bool {
	return func(n models.NotificationObject) bool {
		for _, m := range methods {
			if n.Method == m {
				return true
			}
		}
		return false
	}
}
