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

// Package cli implements the lodestone command line. Every command except
// serve talks to a running service over the local API.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/LodestoneProject/lodestone-core/internal/telemetry"
	"github.com/LodestoneProject/lodestone-core/pkg/api/client"
	"github.com/LodestoneProject/lodestone-core/pkg/config"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// App carries what the commands need. Zero fields are filled in by
// NewRootCmd.
type App struct {
	Out  io.Writer
	Err  io.Writer
	Dirs helpers.Dirs
	// NewClient connects to the running service.
	NewClient func(cfg *config.Instance) (client.APIClient, error)
	// Serve runs the service in the foreground.
	Serve func(ctx context.Context, cfg *config.Instance, dirs helpers.Dirs) error

	cfg *config.Instance
}

func (a *App) withDefaults() {
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Err == nil {
		a.Err = os.Stderr
	}
	if a.Dirs == (helpers.Dirs{}) {
		a.Dirs = helpers.DefaultDirs()
	}
	if a.NewClient == nil {
		a.NewClient = func(cfg *config.Instance) (client.APIClient, error) {
			//nolint:wrapcheck // constructor error is already descriptive
			return client.NewLocal(cfg)
		}
	}
	if a.Serve == nil {
		a.Serve = runService
	}
}

// NewRootCmd builds the command tree for app.
func NewRootCmd(app *App) *cobra.Command {
	app.withDefaults()

	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Download, install and launch games",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			var writers []io.Writer
			if cmd.Name() == "serve" {
				writers = []io.Writer{app.Err}
			}
			cfg, err := Setup(app.Dirs, config.BaseDefaults, writers)
			if err != nil {
				return err
			}
			app.cfg = cfg
			return nil
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.AddCommand(
		newServeCmd(app),
		newLaunchCmd(app),
		newMigrateCmd(app),
		newRedistCmd(app),
		newDownloadCmd(app),
		newVersionCmd(app),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	defer telemetry.Close()
	if err := NewRootCmd(&App{}).Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		telemetry.Flush()
		os.Exit(1) //nolint:gocritic // Flush above stands in for the deferred Close
	}
}

// Setup creates the directory layout and initializes logging and config.
//
//nolint:gocritic // config struct copied for immutability
func Setup(
	dirs helpers.Dirs,
	defaultConfig config.Values,
	writers []io.Writer,
) (*config.Instance, error) {
	if err := dirs.Ensure(); err != nil {
		return nil, fmt.Errorf("error creating directories: %w", err)
	}

	if err := helpers.InitLogging(dirs.Log, writers); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(dirs.Config, defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	helpers.SetLogLevel(cfg.DebugLogging())

	return cfg, nil
}

func initTelemetry(cfg *config.Instance) {
	err := telemetry.Init(telemetry.Options{
		Enabled:     cfg.TelemetryEnabled(),
		DSN:         cfg.TelemetryDSN(),
		Release:     config.AppVersion,
		Environment: "desktop",
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}
}
