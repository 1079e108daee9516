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

// Package downloads implements resumable multi-part direct downloads.
//
// A Job downloads its parts one after another straight to their
// destination paths. Admission goes through a single-flight queue so only
// one transfer is active at a time. Resuming relies only on the byte
// length of the destination file, so a job description restarted after a
// crash continues where the file left off.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/api/notifications"
	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers/syncutil"
	"github.com/LodestoneProject/lodestone-core/pkg/queue"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	// ErrInvalidState is returned by a control operation that is not valid
	// in the job's current status.
	ErrInvalidState = errors.New("invalid job state")
	// ErrResourceMissing marks a part whose URL answered 404 or 410.
	ErrResourceMissing = errors.New("resource not found")
)

type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Part is one independently resumable file of a job.
type Part struct {
	Headers map[string]string `json:"headers,omitempty"`
	URL     string            `json:"url"`
	Path    string            `json:"path"`
}

// Options are the collaborators and tunables of a job.
type Options struct {
	Fs            afero.Fs
	Client        *http.Client
	Queue         *queue.Queue
	Clock         clockwork.Clock
	Notifications chan<- models.Notification
	// OnDone is called once when the job reaches a terminal status.
	OnDone           func(*Job)
	UserAgent        string
	Kind             queue.Kind
	RetryAttempts    int
	RetryBaseDelay   time.Duration
	ProgressInterval time.Duration
}

func (o *Options) withDefaults() {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.Queue == nil {
		o.Queue = queue.New()
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.UserAgent == "" {
		o.UserAgent = config.DefaultUserAgent
	}
	if o.Kind == "" {
		o.Kind = queue.KindDirect
	}
	if o.RetryAttempts < 1 {
		o.RetryAttempts = config.DefaultRetryAttempts
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = config.DefaultRetryBaseDelay
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = config.DefaultProgressInterval
	}
}

// Snapshot is a point-in-time view of a job.
type Snapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Status      Status `json:"status"`
	Error       string `json:"error,omitempty"`
	CurrentPart int    `json:"currentPart"`
	Parts       int    `json:"parts"`
	Bytes       int64  `json:"bytes"`
	Total       int64  `json:"total"`
}

type Job struct {
	baseCtx      context.Context
	err          error
	cancelRun    context.CancelFunc
	runDone      chan struct{}
	done         chan struct{}
	ticket       *queue.Ticket
	sessionStart time.Time
	opts         Options
	id           string
	name         string
	status       Status
	parts        []Part
	current      int
	startOffset  int64
	total        int64
	bytes        atomic.Int64
	mu           syncutil.Mutex
	finalized    bool
}

// NewJob creates a job starting at startPart. Parts before startPart are
// assumed complete and never touched except by Cancel.
func NewJob(id, name string, parts []Part, startPart int, opts Options) (*Job, error) {
	if len(parts) == 0 {
		return nil, errors.New("job has no parts")
	}
	if startPart < 0 || startPart >= len(parts) {
		return nil, fmt.Errorf("start part %d out of range for %d parts", startPart, len(parts))
	}
	opts.withDefaults()
	return &Job{
		id:      id,
		name:    name,
		parts:   append([]Part(nil), parts...),
		current: startPart,
		status:  StatusQueued,
		opts:    opts,
		done:    make(chan struct{}),
		total:   -1,
	}, nil
}

func (j *Job) ID() string {
	return j.id
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// CurrentPart is the zero-based index of the part being transferred, or
// len(parts) once every part is written.
func (j *Job) CurrentPart() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.current
}

func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := Snapshot{
		ID:          j.id,
		Name:        j.name,
		Status:      j.status,
		CurrentPart: j.current,
		Parts:       len(j.parts),
		Bytes:       j.bytes.Load(),
		Total:       j.total,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	return s
}

// Done is closed when the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job is terminal and returns its final status and
// failure, if any.
func (j *Job) Wait(ctx context.Context) (Status, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		return j.Status(), fmt.Errorf("wait for job %s: %w", j.id, ctx.Err())
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status, j.err
}

// Start admits the job through the queue and begins transferring in the
// background. ctx bounds the whole job; when it ends the job stops and
// keeps its files, as if paused.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusQueued || j.baseCtx != nil {
		return fmt.Errorf("%w: cannot start job in status %s", ErrInvalidState, j.status)
	}
	j.baseCtx = ctx
	j.launchLocked()
	return nil
}

// Pause aborts the active request and releases the queue slot. The
// partial file is kept for Resume.
func (j *Job) Pause() error {
	j.mu.Lock()
	if j.status != StatusDownloading {
		status := j.status
		j.mu.Unlock()
		return fmt.Errorf("%w: cannot pause job in status %s", ErrInvalidState, status)
	}
	j.status = StatusPaused
	cancel, runDone := j.cancelRun, j.runDone
	j.mu.Unlock()

	cancel()
	<-runDone
	j.releaseSlot()

	log.Info().Str("job", j.id).Int("part", j.CurrentPart()).Msg("download paused")
	notifications.DownloadPaused(j.opts.Notifications, j.statusParams(StatusPaused))
	return nil
}

// Resume re-admits a paused job through the queue. The current part
// continues from the size of its destination file.
func (j *Job) Resume() error {
	j.mu.Lock()
	if j.status != StatusPaused {
		status := j.status
		j.mu.Unlock()
		return fmt.Errorf("%w: cannot resume job in status %s", ErrInvalidState, status)
	}
	if err := j.baseCtx.Err(); err != nil {
		j.mu.Unlock()
		return fmt.Errorf("%w: job context ended: %w", ErrInvalidState, err)
	}
	j.status = StatusQueued
	j.launchLocked()
	j.mu.Unlock()

	log.Info().Str("job", j.id).Msg("download resumed")
	notifications.DownloadResumed(j.opts.Notifications, j.statusParams(StatusQueued))
	return nil
}

// Cancel aborts the job and deletes the destination file of every part.
func (j *Job) Cancel() error {
	j.mu.Lock()
	if j.status == StatusCancelled || j.status == StatusCompleted {
		status := j.status
		j.mu.Unlock()
		return fmt.Errorf("%w: cannot cancel job in status %s", ErrInvalidState, status)
	}
	j.status = StatusCancelled
	cancel, runDone := j.cancelRun, j.runDone
	j.mu.Unlock()

	if cancel != nil {
		cancel()
		<-runDone
	}
	j.releaseSlot()
	j.removeParts(0)

	log.Info().Str("job", j.id).Msg("download cancelled")
	notifications.DownloadCancelled(j.opts.Notifications, j.statusParams(StatusCancelled))
	j.finalize()
	return nil
}

// launchLocked starts a run goroutine. Caller must hold mu.
func (j *Job) launchLocked() {
	ctx, cancel := context.WithCancel(j.baseCtx)
	runDone := make(chan struct{})
	j.cancelRun = cancel
	j.runDone = runDone
	go func() {
		defer close(runDone)
		defer cancel()
		j.run(ctx)
	}()
}

func (j *Job) run(ctx context.Context) {
	ticket, err := j.opts.Queue.Enqueue(j.id, j.opts.Kind)
	if err != nil {
		j.fail(fmt.Errorf("failed to enqueue download: %w", err), false)
		return
	}
	j.mu.Lock()
	j.ticket = ticket
	j.mu.Unlock()

	outcome, err := ticket.Wait(ctx, func(pos int) {
		if pos > 1 {
			notifications.DownloadQueued(j.opts.Notifications, models.DownloadQueuedParams{
				ID:       j.id,
				Position: pos,
			})
		}
	})
	if err != nil || outcome != queue.OutcomeFulfilled {
		j.stopped()
		return
	}

	j.mu.Lock()
	if j.status != StatusQueued {
		j.mu.Unlock()
		return
	}
	j.status = StatusDownloading
	start := j.current
	j.mu.Unlock()

	log.Info().Str("job", j.id).Int("part", start).Int("parts", len(j.parts)).Msg("download started")

	for i := start; i < len(j.parts); i++ {
		if err := j.downloadPart(ctx, i); err != nil {
			switch {
			case ctx.Err() != nil:
				j.stopped()
			case errors.Is(err, ErrResourceMissing):
				j.fail(err, true)
			default:
				j.fail(err, false)
			}
			return
		}
		j.mu.Lock()
		j.current = i + 1
		j.mu.Unlock()
	}

	j.complete()
}

// stopped handles a run that ended without a terminal transition. Pause and
// Cancel have already set the status; anything else is the job context
// ending, which keeps the files and leaves the job paused.
func (j *Job) stopped() {
	j.mu.Lock()
	if j.status != StatusQueued && j.status != StatusDownloading {
		j.mu.Unlock()
		return
	}
	j.status = StatusPaused
	j.mu.Unlock()

	j.releaseSlot()
	log.Info().Str("job", j.id).Msg("download stopped by shutdown")
	notifications.DownloadPaused(j.opts.Notifications, j.statusParams(StatusPaused))
}

func (j *Job) complete() {
	j.mu.Lock()
	if j.status != StatusDownloading {
		j.mu.Unlock()
		return
	}
	j.status = StatusCompleted
	j.mu.Unlock()

	j.releaseSlot()
	log.Info().Str("job", j.id).Msg("download completed")
	notifications.DownloadCompleted(j.opts.Notifications, j.statusParams(StatusCompleted))
	notifications.Success(j.opts.Notifications, "Download completed: "+j.displayName())
	j.finalize()
}

// fail ends the job after a transfer error. A missing resource cancels the
// job and deletes every part file, since no retry can finish it. Any other
// error marks it failed and deletes only the current and later parts, so a
// new job started at the failed part can reuse the completed ones.
func (j *Job) fail(err error, missing bool) {
	j.mu.Lock()
	if j.status.Terminal() || j.status == StatusPaused {
		j.mu.Unlock()
		return
	}
	j.status = StatusFailed
	if missing {
		j.status = StatusCancelled
	}
	j.err = err
	part := j.current
	j.mu.Unlock()

	j.releaseSlot()
	if missing {
		j.removeParts(0)
	} else {
		j.removeParts(part)
	}

	log.Error().Err(err).Str("job", j.id).Int("part", part).Bool("missing", missing).Msg("download failed")
	notifications.DownloadError(j.opts.Notifications, models.DownloadErrorParams{
		ID:    j.id,
		Error: err.Error(),
		Part:  part,
	})
	if missing {
		notifications.DownloadCancelled(j.opts.Notifications, j.statusParams(StatusCancelled))
	}
	notifications.Error(j.opts.Notifications, fmt.Sprintf("Download failed: %s: %v", j.displayName(), err))
	j.finalize()
}

// finalize runs the once-only terminal bookkeeping.
func (j *Job) finalize() {
	j.mu.Lock()
	if j.finalized {
		j.mu.Unlock()
		return
	}
	j.finalized = true
	close(j.done)
	j.mu.Unlock()

	if j.opts.OnDone != nil {
		j.opts.OnDone(j)
	}
}

func (j *Job) releaseSlot() {
	j.mu.Lock()
	ticket := j.ticket
	j.ticket = nil
	j.mu.Unlock()
	if ticket != nil {
		ticket.Finish()
	}
}

// removeParts deletes the destination files of parts[from:].
func (j *Job) removeParts(from int) {
	for _, p := range j.parts[from:] {
		err := j.opts.Fs.Remove(p.Path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("job", j.id).Str("path", p.Path).Msg("error removing part file")
		}
	}
}

func (j *Job) statusParams(status Status) models.DownloadStatusParams {
	return models.DownloadStatusParams{
		ID:     j.id,
		Status: string(status),
		Part:   j.CurrentPart(),
	}
}

func (j *Job) displayName() string {
	if j.name != "" {
		return j.name
	}
	return j.id
}
