// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"github.com/ManuGH/streamreaper/internal/config"
	"github.com/ManuGH/streamreaper/internal/daemon"
	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reaper daemon with its admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loader, err := opts.load()
			if err != nil {
				return err
			}
			logger := xglog.WithComponent("daemon")

			ctx, stop := daemon.WaitForShutdown()
			defer stop()

			holder := config.NewConfigHolder(cfg, loader, cfg.ConfigPath)
			app, err := daemon.Build(ctx, cfg, holder)
			if err != nil {
				return err
			}

			logger.Info().
				Str(xglog.FieldEvent, "daemon.start").
				Str("version", cfg.Version).
				Str("api", cfg.API.ListenAddr).
				Str("store", cfg.Store.Backend).
				Str("control", cfg.Control.Backend).
				Dur("interval", cfg.Reaper.Interval).
				Dur(xglog.FieldMaxAge, cfg.Reaper.MaxAge).
				Msg("starting streamreaper")

			if err := app.Run(ctx); err != nil {
				return err
			}
			logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("streamreaper stopped")
			return nil
		},
	}
}
