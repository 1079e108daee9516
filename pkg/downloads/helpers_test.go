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

package downloads

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/queue"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type request struct {
	at    time.Time
	path  string
	rng   string
	agent string
	enc   string
}

// fileServer serves named payloads with range support and records every
// request. Per path handlers override the default behaviour.
type fileServer struct {
	*httptest.Server
	files    map[string][]byte
	handlers map[string]http.HandlerFunc
	requests []request
	mu       sync.Mutex
}

func newFileServer(t *testing.T, files map[string][]byte) *fileServer {
	t.Helper()
	fsrv := &fileServer{
		files:    files,
		handlers: map[string]http.HandlerFunc{},
	}
	fsrv.Server = httptest.NewServer(http.HandlerFunc(fsrv.serve))
	t.Cleanup(func() {
		fsrv.Client().CloseIdleConnections()
		fsrv.Close()
	})
	return fsrv
}

func (f *fileServer) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fileServer) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, request{
		at:    time.Now(),
		path:  r.URL.Path,
		rng:   r.Header.Get("Range"),
		agent: r.Header.Get("User-Agent"),
		enc:   r.Header.Get("Accept-Encoding"),
	})
	h := f.handlers[r.URL.Path]
	data, ok := f.files[r.URL.Path]
	f.mu.Unlock()

	if h != nil {
		h(w, r)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, r.URL.Path, time.Time{}, bytes.NewReader(data))
}

func (f *fileServer) requestsFor(path string) []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []request
	for _, r := range f.requests {
		if r.path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *fileServer) allRequests() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.requests...)
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

type testEnv struct {
	fs    afero.Fs
	srv   *fileServer
	queue *queue.Queue
	ns    chan models.Notification
	opts  Options
}

func newTestEnv(t *testing.T, files map[string][]byte) *testEnv {
	t.Helper()
	srv := newFileServer(t, files)
	env := &testEnv{
		fs:    afero.NewMemMapFs(),
		srv:   srv,
		queue: queue.New(),
		ns:    make(chan models.Notification, 1024),
	}
	env.opts = Options{
		Fs:               env.fs,
		Client:           srv.Client(),
		Queue:            env.queue,
		Clock:            clockwork.NewRealClock(),
		Notifications:    env.ns,
		UserAgent:        "lodestone-test",
		RetryAttempts:    5,
		RetryBaseDelay:   5 * time.Millisecond,
		ProgressInterval: 10 * time.Millisecond,
	}
	return env
}

func (e *testEnv) job(t *testing.T, parts []Part, startPart int) *Job {
	t.Helper()
	j, err := NewJob("job-"+t.Name(), "test", parts, startPart, e.opts)
	require.NoError(t, err)
	return j
}

func (e *testEnv) url(path string) string {
	return e.srv.URL + path
}

func (e *testEnv) methods() []string {
	var out []string
	for {
		select {
		case n := <-e.ns:
			out = append(out, n.Method)
		default:
			return out
		}
	}
}

func waitJob(t *testing.T, j *Job) (Status, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := j.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "job did not finish")
	return status, err
}

func waitStatus(t *testing.T, j *Job, want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return j.Status() == want },
		5*time.Second, 5*time.Millisecond, "job never reached %s", want)
}

func fileContent(t *testing.T, fs afero.Fs, path string) []byte {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return data
}

func fileExists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	return ok
}
