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

package client

import (
	"context"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/launch"
	"github.com/LodestoneProject/lodestone-core/pkg/migrate"
)

// APIClient abstracts API communication for testability.
type APIClient interface {
	Launch(ctx context.Context, appID int) (launch.Result, error)
	Migrate(ctx context.Context, appID int, legacyID string) (migrate.Result, error)
	InstallRedist(ctx context.Context, appID int) (string, error)
	AddDownload(ctx context.Context, params models.NewDownloadParams) (models.NewDownloadResponse, error)
	Events(ctx context.Context) (*Events, error)
}

var _ APIClient = (*Client)(nil)
