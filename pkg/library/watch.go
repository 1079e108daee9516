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
	"context"
	"fmt"
	"path/filepath"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/api/notifications"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch reports record changes in dir on ns until ctx is done. dir must
// be on the real filesystem.
func Watch(ctx context.Context, dir string, ns chan<- models.Notification) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create library watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Error().Err(err).Msg("error closing library watcher")
		}
	}()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	log.Info().Str("dir", dir).Msg("watching library records")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			appID, ok := ParseRecordName(filepath.Base(event.Name))
			if !ok {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				notifications.LibraryChanged(ns, models.LibraryChangedParams{AppID: appID, Removed: true})
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				notifications.LibraryChanged(ns, models.LibraryChangedParams{AppID: appID})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("error in library watcher")
		}
	}
}
