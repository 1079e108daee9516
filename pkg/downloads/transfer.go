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
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// errRestartPart means the partial file was discarded and the part
	// must be requested again from byte 0.
	errRestartPart = errors.New("part restarted from zero")
	// errStopped means the job was paused or cancelled between attempts.
	errStopped = errors.New("job no longer downloading")
)

// downloadPart transfers one part, retrying transient failures with a
// linearly increasing delay.
func (j *Job) downloadPart(ctx context.Context, index int) error {
	restarts := 0
	attempt := 1
	for {
		if err := j.checkRunning(ctx); err != nil {
			return err
		}

		err := j.transferPart(ctx, index)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("part %d aborted: %w", index+1, ctx.Err())
		}
		if errors.Is(err, ErrResourceMissing) {
			return err
		}
		if errors.Is(err, errRestartPart) && restarts < j.opts.RetryAttempts {
			restarts++
			log.Info().Str("job", j.id).Int("part", index+1).Msg("range not honoured, restarting part")
			continue
		}
		if attempt >= j.opts.RetryAttempts {
			return fmt.Errorf("part %d failed after %d attempts: %w", index+1, attempt, err)
		}

		delay := j.opts.RetryBaseDelay * time.Duration(attempt)
		log.Warn().Err(err).
			Str("job", j.id).
			Int("part", index+1).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("download attempt failed, retrying")
		select {
		case <-j.opts.Clock.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("part %d aborted: %w", index+1, ctx.Err())
		}
		attempt++
	}
}

func (j *Job) checkRunning(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("job aborted: %w", err)
	}
	if j.Status() != StatusDownloading {
		return errStopped
	}
	return nil
}

func (j *Job) transferPart(ctx context.Context, index int) error {
	part := j.parts[index]
	fs := j.opts.Fs

	size, err := j.partSize(part.Path)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, part.URL, http.NoBody)
	if err != nil {
		// a malformed URL never becomes valid, so treat it like a missing resource
		return fmt.Errorf("%w: invalid url %q: %w", ErrResourceMissing, part.URL, err)
	}
	for k, v := range part.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", j.opts.UserAgent)
	// compressed transfer encodings break byte offset accounting
	req.Header.Set("Accept-Encoding", "identity")
	if size > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", size))
	}

	resp, err := j.opts.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("error closing response body")
		}
	}()

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return fmt.Errorf("%w: %s returned %d", ErrResourceMissing, part.URL, resp.StatusCode)
	case http.StatusRequestedRangeNotSatisfiable:
		j.removePart(part.Path)
		return errRestartPart
	case http.StatusPartialContent:
		if start, ok := parseContentRangeStart(resp.Header.Get("Content-Range")); ok && start != size {
			log.Warn().Str("job", j.id).Int64("expected", size).Int64("got", start).
				Msg("content range does not match partial file")
			j.removePart(part.Path)
			return errRestartPart
		}
	case http.StatusOK:
		if size > 0 {
			// full body for a ranged request: discard the partial file and
			// stream this response from zero
			log.Info().Str("job", j.id).Int("part", index+1).Msg("server ignored range request")
			j.removePart(part.Path)
			size = 0
		}
	default:
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, part.URL)
	}

	if err := fs.MkdirAll(filepath.Dir(part.Path), 0o750); err != nil {
		return fmt.Errorf("failed to create destination dir: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY
	if size > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := fs.OpenFile(part.Path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open destination: %w", err)
	}

	contentLength := resp.ContentLength
	j.beginPart(size, contentLength)
	stopProgress := j.reportProgress(index)
	written, copyErr := io.Copy(&countingWriter{w: f, n: &j.bytes}, resp.Body)
	stopProgress()
	closeErr := f.Close()

	if copyErr != nil {
		return fmt.Errorf("stream interrupted after %d bytes: %w", written, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close destination: %w", closeErr)
	}
	if contentLength >= 0 && written < contentLength {
		return fmt.Errorf("short read, got %d of %d bytes: %w", written, contentLength, io.ErrUnexpectedEOF)
	}

	j.emitProgress(index)
	return nil
}

func (j *Job) partSize(path string) (int64, error) {
	info, err := j.opts.Fs.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("destination %s is a directory", path)
	}
	return info.Size(), nil
}

func (j *Job) removePart(path string) {
	if err := j.opts.Fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("error removing partial file")
	}
}

func (j *Job) beginPart(startOffset, contentLength int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.startOffset = startOffset
	if contentLength >= 0 {
		j.total = startOffset + contentLength
	} else {
		j.total = -1
	}
	j.sessionStart = j.opts.Clock.Now()
	j.bytes.Store(startOffset)
}

// parseContentRangeStart extracts the first byte offset of a
// "bytes start-end/size" header.
func parseContentRangeStart(h string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(h), "bytes ")
	if !ok {
		return 0, false
	}
	startStr, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil {
		return 0, false
	}
	return start, true
}
