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
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	// DefaultTimeoutSeconds is the default timeout for small HTTP requests
	DefaultTimeoutSeconds = 30
)

// AuthTransport applies the held auth configuration to outgoing requests
// by URL prefix and sets a User-Agent when the request has none.
type AuthTransport struct {
	Base      http.RoundTripper
	UserAgent string
}

// RoundTrip implements http.RoundTripper interface with automatic authentication
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	creds := config.LookupAuth(config.GetAuthCfg(), req.URL.String())
	if creds != nil || (t.UserAgent != "" && req.Header.Get("User-Agent") == "") {
		// RoundTrippers must not modify the caller's request
		req = req.Clone(req.Context())
	}
	if t.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	if creds != nil && req.Header.Get("Authorization") == "" {
		if creds.Bearer != "" {
			req.Header.Set("Authorization", "Bearer "+creds.Bearer)
		} else if creds.Username != "" {
			auth := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
			req.Header.Set("Authorization", "Basic "+auth)
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP round trip: %w", err)
	}
	return resp, nil
}

// DefaultTransport provides a configured transport with connection pooling and reasonable timeouts
var DefaultTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ResponseHeaderTimeout: 30 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
}

// Client provides an HTTP client with authentication and sensible defaults
type Client struct {
	*http.Client
}

// NewClient creates an HTTP client without an overall timeout, suitable
// for long streaming transfers.
func NewClient(userAgent string) *Client {
	return NewClientWithTimeout(userAgent, 0)
}

// NewClientWithTimeout creates a new HTTP client with a custom timeout
func NewClientWithTimeout(userAgent string, timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Transport: &AuthTransport{
				Base:      DefaultTransport,
				UserAgent: userAgent,
			},
			Timeout: timeout,
		},
	}
}

// NewClientFromConfig creates a streaming client using the configured
// user agent.
func NewClientFromConfig(cfg *config.Instance) *Client {
	return NewClient(cfg.DownloadUserAgent())
}

// DownloadFileArgs contains arguments for file download operations
type DownloadFileArgs struct {
	Fs         afero.Fs
	URL        string
	OutputPath string
	// TempPath defaults to OutputPath + ".part".
	TempPath string
}

// DownloadFile downloads a whole file to a temporary path and renames it
// into place, so a cached tool is never observed half written.
func (c *Client) DownloadFile(ctx context.Context, args DownloadFileArgs) error {
	fs := args.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	tempPath := args.TempPath
	if tempPath == "" {
		tempPath = args.OutputPath + ".part"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("error getting url: %w", err)
	}
	if resp == nil {
		return errors.New("received nil response")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("invalid status code: %d", resp.StatusCode)
	}

	if err := fs.MkdirAll(filepath.Dir(args.OutputPath), 0o750); err != nil {
		return fmt.Errorf("error creating output dir: %w", err)
	}

	file, err := fs.Create(tempPath)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}

	cleanup := func() {
		if closeErr := file.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			log.Warn().Err(closeErr).Msgf("error closing file: %s", tempPath)
		}
		if removeErr := fs.Remove(tempPath); removeErr != nil {
			log.Warn().Err(removeErr).Msgf("error removing partial download: %s", tempPath)
		}
	}

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		cleanup()
		return fmt.Errorf("error downloading file: %w", err)
	}

	expected := resp.ContentLength
	if expected > 0 && written != expected {
		cleanup()
		return fmt.Errorf("download incomplete: expected %d bytes, got %d", expected, written)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("error closing file: %w", err)
	}

	if err := fs.Rename(tempPath, args.OutputPath); err != nil {
		if removeErr := fs.Remove(tempPath); removeErr != nil {
			log.Warn().Err(removeErr).Msgf("error removing temp file: %s", tempPath)
		}
		return fmt.Errorf("error renaming temp file: %w", err)
	}

	return nil
}
