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

package notifications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSendNotification_NonBlocking checks a send on a channel nobody reads
// returns immediately.
func TestSendNotification_NonBlocking(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification)

	done := make(chan struct{})
	go func() {
		DownloadQueued(ns, models.DownloadQueuedParams{ID: "job", Position: 2})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("notification send blocked on full channel")
	}
}

func TestSendNotification_SuccessfulSend(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)

	DownloadProgress(ns, models.DownloadProgressParams{
		ID:       "job-1",
		Part:     1,
		Parts:    2,
		Progress: 0.5,
	})

	select {
	case n := <-ns:
		assert.Equal(t, models.NotificationDownloadProgress, n.Method)
		var p models.DownloadProgressParams
		require.NoError(t, json.Unmarshal(n.Params, &p))
		assert.Equal(t, "job-1", p.ID)
		assert.InDelta(t, 0.5, p.Progress, 0.0001)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected notification was not sent")
	}
}

func TestNotify_GeneratesID(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 2)

	Error(ns, "download failed")
	Notify(ns, models.NotifyInfo, "hello", "fixed-id")

	var first, second models.NotifyParams
	require.NoError(t, json.Unmarshal((<-ns).Params, &first))
	require.NoError(t, json.Unmarshal((<-ns).Params, &second))

	assert.Equal(t, models.NotifyError, first.Type)
	assert.Equal(t, "download failed", first.Message)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "fixed-id", second.ID)
}

func TestMethods(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 16)

	DownloadPaused(ns, models.DownloadStatusParams{ID: "a"})
	DownloadResumed(ns, models.DownloadStatusParams{ID: "a"})
	DownloadCancelled(ns, models.DownloadStatusParams{ID: "a"})
	DownloadCompleted(ns, models.DownloadStatusParams{ID: "a"})
	DownloadError(ns, models.DownloadErrorParams{ID: "a"})
	GameLaunched(ns, models.GameLaunchedParams{AppID: 7})
	GameExited(ns, models.GameExitedParams{AppID: 7})
	RedistProgress(ns, models.RedistProgressParams{AppID: 7})
	LibraryChanged(ns, models.LibraryChangedParams{AppID: 7})

	want := []string{
		models.NotificationDownloadPaused,
		models.NotificationDownloadResumed,
		models.NotificationDownloadCancelled,
		models.NotificationDownloadCompleted,
		models.NotificationDownloadError,
		models.NotificationGameLaunched,
		models.NotificationGameExited,
		models.NotificationRedistProgress,
		models.NotificationLibraryChanged,
	}
	for _, method := range want {
		n := <-ns
		assert.Equal(t, method, n.Method)
		assert.Contains(t, models.AllNotifications, n.Method)
	}
}
