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

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/LodestoneProject/lodestone-core/pkg/api/client"
	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers"
	"github.com/LodestoneProject/lodestone-core/pkg/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	ErrInvalidAppID = errors.New("app id must be a positive number")
	ErrPathsMissing = errors.New("download needs at least one part path")
)

func runService(ctx context.Context, cfg *config.Instance, dirs helpers.Dirs) error {
	initTelemetry(cfg)

	svc, err := service.New(cfg, dirs, service.Options{})
	if err != nil {
		return fmt.Errorf("error starting service: %w", err)
	}
	//nolint:wrapcheck // service errors are already wrapped
	return svc.Run(ctx)
}

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the service in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			defer func() {
				if r := recover(); r != nil {
					log.Fatal().Msgf("panic: %v", r)
				}
			}()

			return app.Serve(ctx, app.cfg, app.Dirs)
		},
	}
}

func parseAppID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAppID, s)
	}
	return id, nil
}

func newLaunchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "launch <appID>",
		Short: "Launch an installed game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := parseAppID(args[0])
			if err != nil {
				return err
			}
			c, err := app.NewClient(app.cfg)
			if err != nil {
				return err //nolint:wrapcheck // constructor error is already descriptive
			}
			res, err := c.Launch(cmd.Context(), appID)
			if err != nil {
				return fmt.Errorf("error launching: %w", err)
			}
			if !res.Success {
				return fmt.Errorf("launch failed: %s", res.Error)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "launched %d\n", appID)
			return nil
		},
	}
}

func newMigrateCmd(app *App) *cobra.Command {
	var legacyID string
	cmd := &cobra.Command{
		Use:   "migrate <appID>",
		Short: "Move a game's prefix to umu-launcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := parseAppID(args[0])
			if err != nil {
				return err
			}
			c, err := app.NewClient(app.cfg)
			if err != nil {
				return err //nolint:wrapcheck // constructor error is already descriptive
			}
			res, err := c.Migrate(cmd.Context(), appID, legacyID)
			if err != nil {
				return fmt.Errorf("error migrating: %w", err)
			}
			if !res.Success {
				return fmt.Errorf("migration failed: %s", res.Error)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.PrefixPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&legacyID, "legacy-id", "", "Steam shortcut id of the legacy prefix")
	return cmd
}

func newRedistCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "redist <appID>",
		Short: "Install a game's pending redistributables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := parseAppID(args[0])
			if err != nil {
				return err
			}
			c, err := app.NewClient(app.cfg)
			if err != nil {
				return err //nolint:wrapcheck // constructor error is already descriptive
			}
			result, err := c.InstallRedist(cmd.Context(), appID)
			if err != nil {
				return fmt.Errorf("error installing redistributables: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

type downloadFlags struct {
	name      string
	kind      string
	startPart int
	wait      bool
}

func newDownloadCmd(app *App) *cobra.Command {
	var flags downloadFlags
	cmd := &cobra.Command{
		Use:   "download <url> <path>...",
		Short: "Queue a download; extra paths are parts of the same file set",
		Long: `Queue a download. Each path is a part; the url is used for every part
unless more urls are given with --part-url.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, _ := cmd.Flags().GetStringArray("part-url")
			params, err := downloadParams(args, urls, flags)
			if err != nil {
				return err
			}
			c, err := app.NewClient(app.cfg)
			if err != nil {
				return err //nolint:wrapcheck // constructor error is already descriptive
			}
			return runDownload(cmd, c, params, flags.wait)
		},
	}
	cmd.Flags().StringVar(&flags.name, "name", "", "Display name of the download")
	cmd.Flags().StringVar(&flags.kind, "kind", "direct", "Queue kind (direct or torrent)")
	cmd.Flags().IntVar(&flags.startPart, "start-part", 0, "Index of the first part to fetch")
	cmd.Flags().BoolVar(&flags.wait, "wait", false, "Wait until the download finishes")
	cmd.Flags().StringArray("part-url", nil, "URL of the next part after the first")
	return cmd
}

// downloadParams pairs args[0] and urls with the paths in args[1:]. Parts
// without their own url reuse the last one given.
func downloadParams(args, urls []string, flags downloadFlags) (models.NewDownloadParams, error) {
	if len(args) < 2 {
		return models.NewDownloadParams{}, ErrPathsMissing
	}
	all := append([]string{args[0]}, urls...)
	paths := args[1:]
	parts := make([]models.DownloadPart, len(paths))
	for i, p := range paths {
		u := all[len(all)-1]
		if i < len(all) {
			u = all[i]
		}
		parts[i] = models.DownloadPart{URL: u, Path: p}
	}
	return models.NewDownloadParams{
		Name:      flags.name,
		Kind:      flags.kind,
		Parts:     parts,
		StartPart: flags.startPart,
	}, nil
}

func runDownload(cmd *cobra.Command, c client.APIClient, params models.NewDownloadParams, wait bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var events *client.Events
	if wait {
		// subscribe first so the terminal event cannot be missed
		var err error
		events, err = c.Events(ctx)
		if err != nil {
			return fmt.Errorf("error subscribing to events: %w", err)
		}
		defer func() { _ = events.Close() }()
	}

	res, err := c.AddDownload(ctx, params)
	if err != nil {
		return fmt.Errorf("error adding download: %w", err)
	}
	_, _ = fmt.Fprintf(out, "queued %s at position %d\n", res.ID, res.Position)
	if !wait {
		return nil
	}

	n, err := events.Wait(ctx, -1, func(n models.NotificationObject) bool {
		switch n.Method {
		case models.NotificationDownloadCompleted,
			models.NotificationDownloadCancelled,
			models.NotificationDownloadError:
		default:
			return false
		}
		var p struct {
			ID string `json:"id"`
		}
		return json.Unmarshal(n.Params, &p) == nil && p.ID == res.ID
	})
	if err != nil {
		return fmt.Errorf("error waiting for download: %w", err)
	}

	switch n.Method {
	case models.NotificationDownloadCompleted:
		_, _ = fmt.Fprintf(out, "completed %s\n", res.ID)
		return nil
	case models.NotificationDownloadError:
		var p models.DownloadErrorParams
		_ = json.Unmarshal(n.Params, &p)
		return fmt.Errorf("download failed: %s", p.Error)
	default:
		return fmt.Errorf("download %s was cancelled", res.ID)
	}
}

func newVersionCmd(_ *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Lodestone v%s (%s)\n", config.AppVersion, runtime.GOOS+"/"+runtime.GOARCH)
		},
	}
}
