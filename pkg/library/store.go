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

package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/LodestoneProject/lodestone-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrNotFound is returned when no record exists for an app id.
var ErrNotFound = errors.New("game not found")

// ErrInvalidAppID is returned for app ids that cannot name a record.
var ErrInvalidAppID = errors.New("invalid app id")

// ErrExists is returned by Create when a record is already stored.
var ErrExists = errors.New("game already exists")

// Store reads and writes records as <appID>.json files under one directory.
// Writes for the same app id are serialized through Update.
type Store struct {
	fs    afero.Fs
	locks map[int]*syncutil.Mutex
	dir   string
	mu    syncutil.Mutex
}

func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{
		fs:    fs,
		dir:   dir,
		locks: make(map[int]*syncutil.Mutex),
	}
}

// Dir is the directory records are stored in.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(appID int) string {
	return filepath.Join(s.dir, strconv.Itoa(appID)+recordExtension)
}

func (s *Store) lock(appID int) *syncutil.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[appID]
	if !ok {
		l = &syncutil.Mutex{}
		s.locks[appID] = l
	}
	return l
}

// Load returns the record for appID, or nil with no error when it does
// not exist.
func (s *Store) Load(appID int) (*Record, error) {
	if appID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAppID, appID)
	}
	data, err := afero.ReadFile(s.fs, s.path(appID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read record %d: %w", appID, err)
	}
	rec, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", appID, err)
	}
	if rec.AppID == 0 {
		rec.AppID = appID
	}
	return rec, nil
}

// Save writes rec, replacing any existing document.
func (s *Store) Save(rec *Record) error {
	if rec == nil || rec.AppID <= 0 {
		return ErrInvalidAppID
	}
	l := s.lock(rec.AppID)
	l.Lock()
	defer l.Unlock()
	return s.write(rec)
}

// Create writes rec for a newly installed game. It fails with ErrExists
// when the app id already has a record.
func (s *Store) Create(rec *Record) error {
	if rec == nil || rec.AppID <= 0 {
		return ErrInvalidAppID
	}
	l := s.lock(rec.AppID)
	l.Lock()
	defer l.Unlock()

	exists, err := afero.Exists(s.fs, s.path(rec.AppID))
	if err != nil {
		return fmt.Errorf("failed to check record %d: %w", rec.AppID, err)
	} else if exists {
		return fmt.Errorf("%w: %d", ErrExists, rec.AppID)
	}
	return s.write(rec)
}

// Update applies fn to the current record and saves the result. fn sees
// a record no other Update for the same app id can change concurrently.
// An error from fn leaves the stored record untouched.
func (s *Store) Update(appID int, fn func(*Record) error) (*Record, error) {
	l := s.lock(appID)
	l.Lock()
	defer l.Unlock()

	rec, err := s.Load(appID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, appID)
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	rec.AppID = appID
	if err := s.write(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// write saves through a temporary file so readers never see a partial
// document.
func (s *Store) write(rec *Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create library dir: %w", err)
	}
	final := s.path(rec.AppID)
	tmp := filepath.Join(s.dir, "."+filepath.Base(final)+".tmp")
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write record %d: %w", rec.AppID, err)
	}
	if err := s.fs.Rename(tmp, final); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace record %d: %w", rec.AppID, err)
	}
	return nil
}

// Remove deletes the record for appID.
func (s *Store) Remove(appID int) error {
	l := s.lock(appID)
	l.Lock()
	defer l.Unlock()

	err := s.fs.Remove(s.path(appID))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %d", ErrNotFound, appID)
	} else if err != nil {
		return fmt.Errorf("failed to remove record %d: %w", appID, err)
	}
	return nil
}

// ListAll returns every readable record ordered by app id. Unreadable
// documents are logged and skipped.
func (s *Store) ListAll() ([]Record, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read library dir: %w", err)
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		appID, ok := ParseRecordName(entry.Name())
		if !ok {
			continue
		}
		rec, err := s.Load(appID)
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable library record")
			continue
		}
		if rec != nil {
			records = append(records, *rec)
		}
	}
	slices.SortFunc(records, func(a, b Record) int { return a.AppID - b.AppID })
	return records, nil
}

// ParseRecordName returns the app id named by a record file name.
func ParseRecordName(name string) (int, bool) {
	base, ok := strings.CutSuffix(name, recordExtension)
	if !ok {
		return 0, false
	}
	appID, err := strconv.Atoi(base)
	if err != nil || appID <= 0 {
		return 0, false
	}
	return appID, true
}
