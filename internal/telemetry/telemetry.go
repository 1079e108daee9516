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

// Package telemetry provides opt-in error reporting via Sentry.
// Usernames in paths and credentials in URLs are stripped before
// transmission.
package telemetry

import (
	"fmt"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/helpers"
	"github.com/getsentry/sentry-go"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const flushTimeout = 2 * time.Second

// Options configures Init.
type Options struct {
	DSN         string
	Release     string
	Environment string
	Enabled     bool
}

type reporter struct {
	writer *sentryzerolog.Writer
	once   sync.Once
	mu     sync.Mutex
	active bool
}

var state reporter

type scrubber struct {
	re   *regexp.Regexp
	repl string
}

// Applied in order. Userinfo goes before the query so both are removed
// from a single URL.
var scrubbers = []scrubber{
	{regexp.MustCompile(`(?i)/home/[^/]+/`), "/home/<user>/"},
	{regexp.MustCompile(`(?i)/Users/[^/]+/`), "/Users/<user>/"},
	{regexp.MustCompile(`(?i)[a-zA-Z]:\\Users\\[^\\]+\\`), `C:\Users\<user>\`},
	// download URLs carry debrid tokens in their userinfo or query
	{regexp.MustCompile(`(https?://)[^\s/@"']+@`), "$1"},
	{regexp.MustCompile(`(https?://[^\s?#"']+)\?[^\s#"']*`), "$1?<redacted>"},
}

// Init starts Sentry and tees error-level logs into it. Nothing is sent
// unless opts.Enabled is set and a DSN is given.
func Init(opts Options) error {
	state.mu.Lock()
	defer state.mu.Unlock()

	if !opts.Enabled || opts.DSN == "" {
		log.Debug().Msg("error reporting disabled")
		return nil
	}

	clientOpts := sentry.ClientOptions{
		Dsn:              opts.DSN,
		Release:          "lodestone-core@" + opts.Release,
		Environment:      opts.Environment,
		AttachStacktrace: true,
		SendDefaultPII:   false,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return sanitizeEvent(event)
		},
	}
	if err := sentry.Init(clientOpts); err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(map[string]string{
			"os":   runtime.GOOS,
			"arch": runtime.GOARCH,
		})
	})

	w, err := sentryzerolog.NewWithHub(sentry.CurrentHub(), sentryzerolog.Options{
		Levels:       []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel},
		FlushTimeout: flushTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create sentry log writer: %w", err)
	}
	state.writer = w

	log.Logger = log.Output(zerolog.MultiLevelWriter(helpers.LogWriter(), w)).
		With().Timestamp().Caller().Logger()

	state.active = true
	log.Info().Str("environment", opts.Environment).Msg("error reporting enabled")
	return nil
}

// Close flushes pending events and shuts Sentry down. Repeated calls are
// no-ops.
func Close() {
	if !Enabled() {
		return
	}
	state.once.Do(func() {
		if err := state.writer.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing sentry log writer")
		}
		sentry.Flush(flushTimeout)
	})
}

// Flush waits for queued events. Call it before os.Exit.
func Flush() {
	if Enabled() {
		sentry.Flush(flushTimeout)
	}
}

func Enabled() bool {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.active
}

func sanitizeEvent(event *sentry.Event) *sentry.Event {
	// the SDK fills in the hostname when ServerName is left empty
	event.ServerName = ""
	event.Message = sanitize(event.Message)

	for i := range event.Exception {
		ex := &event.Exception[i]
		ex.Value = sanitize(ex.Value)
		if ex.Stacktrace == nil {
			continue
		}
		for j := range ex.Stacktrace.Frames {
			frame := &ex.Stacktrace.Frames[j]
			frame.AbsPath = sanitize(frame.AbsPath)
			frame.Filename = sanitize(frame.Filename)
		}
	}

	for k, v := range event.Extra {
		if s, ok := v.(string); ok {
			event.Extra[k] = sanitize(s)
		}
	}
	return event
}

func sanitize(s string) string {
	for _, sc := range scrubbers {
		if s == "" {
			break
		}
		s = sc.re.ReplaceAllString(s, sc.repl)
	}
	return s
}
