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
	"path/filepath"
	"slices"

	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers/syncutil"
	"github.com/LodestoneProject/lodestone-core/pkg/queue"
	"github.com/google/uuid"
)

// ErrJobNotFound is returned for ids that are not in the live registry.
var ErrJobNotFound = errors.New("download job not found")

// Request describes a new download job.
type Request struct {
	Name      string
	Kind      queue.Kind
	Parts     []Part
	StartPart int
}

// Manager is the live registry of download jobs. Jobs leave the registry
// when they complete, fail or are cancelled.
type Manager struct {
	jobs  map[string]*Job
	dir   string
	opts  Options
	order []string
	mu    syncutil.RWMutex
}

// OptionsFromConfig fills the tunables of opts from cfg.
//
//nolint:gocritic // options struct copied on purpose
func OptionsFromConfig(cfg *config.Instance, opts Options) Options {
	opts.UserAgent = cfg.DownloadUserAgent()
	opts.RetryAttempts = cfg.DownloadRetryAttempts()
	opts.RetryBaseDelay = cfg.DownloadRetryBaseDelay()
	opts.ProgressInterval = cfg.DownloadProgressInterval()
	return opts
}

// NewManager creates a registry whose jobs share opts. Relative part
// paths are resolved against dir when it is set.
//
//nolint:gocritic // options struct copied on purpose
func NewManager(dir string, opts Options) *Manager {
	opts.withDefaults()
	return &Manager{
		jobs: make(map[string]*Job),
		dir:  dir,
		opts: opts,
	}
}

// Add registers and starts a new job. ctx bounds the job's lifetime.
func (m *Manager) Add(ctx context.Context, req Request) (*Job, error) {
	parts := make([]Part, len(req.Parts))
	for i, p := range req.Parts {
		if !filepath.IsAbs(p.Path) {
			if m.dir == "" {
				return nil, fmt.Errorf("part %d: relative path %q without a download dir", i+1, p.Path)
			}
			p.Path = filepath.Join(m.dir, p.Path)
		}
		parts[i] = p
	}

	opts := m.opts
	if req.Kind != "" {
		opts.Kind = req.Kind
	}
	opts.OnDone = m.remove

	job, err := NewJob(uuid.NewString(), req.Name, parts, req.StartPart, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.jobs[job.id] = job
	m.order = append(m.order, job.id)
	m.mu.Unlock()

	if err := job.Start(ctx); err != nil {
		m.remove(job)
		return nil, err
	}
	return job, nil
}

func (m *Manager) Get(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, nil
}

// List returns snapshots of live jobs in creation order.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.order))
	for _, id := range m.order {
		jobs = append(jobs, m.jobs[id])
	}
	m.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(jobs))
	for _, j := range jobs {
		snaps = append(snaps, j.Snapshot())
	}
	return snaps
}

func (m *Manager) Pause(id string) error {
	job, err := m.Get(id)
	if err != nil {
		return err
	}
	return job.Pause()
}

func (m *Manager) Resume(id string) error {
	job, err := m.Get(id)
	if err != nil {
		return err
	}
	return job.Resume()
}

func (m *Manager) Cancel(id string) error {
	job, err := m.Get(id)
	if err != nil {
		return err
	}
	return job.Cancel()
}

func (m *Manager) remove(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.id]; !ok {
		return
	}
	delete(m.jobs, job.id)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == job.id })
}
