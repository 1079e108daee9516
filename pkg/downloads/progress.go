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
	"io"
	"sync/atomic"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/api/notifications"
)

// computeProgress returns the fraction of the part on disk and the
// transfer speed of this session in bytes per second. total is
// startOffset + contentLength, or negative when the length is unknown.
func computeProgress(bytes, startOffset, total int64, elapsed time.Duration) (progress, speed float64) {
	if total > 0 {
		progress = float64(bytes) / float64(total)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		speed = float64(bytes-startOffset) / secs
	}
	return progress, speed
}

// reportProgress emits a progress sample every interval until the
// returned stop func is called.
func (j *Job) reportProgress(index int) (stop func()) {
	ticker := j.opts.Clock.NewTicker(j.opts.ProgressInterval)
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.Chan():
				j.emitProgress(index)
			case <-quit:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(quit)
		<-done
	}
}

func (j *Job) emitProgress(index int) {
	j.mu.Lock()
	start, total, since := j.startOffset, j.total, j.sessionStart
	j.mu.Unlock()

	bytes := j.bytes.Load()
	progress, speed := computeProgress(bytes, start, total, j.opts.Clock.Since(since))
	notifications.DownloadProgress(j.opts.Notifications, models.DownloadProgressParams{
		ID:       j.id,
		URL:      j.parts[index].URL,
		Part:     index,
		Parts:    len(j.parts),
		Bytes:    bytes,
		Total:    total,
		Progress: progress,
		Speed:    speed,
	})
}

type countingWriter struct {
	w io.Writer
	n *atomic.Int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(int64(n))
	return n, err //nolint:wrapcheck // io.Copy inspects the raw error
}
