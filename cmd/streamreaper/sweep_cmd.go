// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/streamreaper/internal/daemon"
	"github.com/spf13/cobra"
)

func newSweepCmd(opts *rootOptions) *cobra.Command {
	var maxAge time.Duration
	var pageSize int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep against the configured store and controller",
		Long: `Runs a single sweep and prints its result as JSON.
Do not run this against a store that a serving daemon sweeps at the same time:
both would stop the same broadcasts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if maxAge > 0 {
				cfg.Reaper.MaxAge = maxAge
			}
			if pageSize > 0 {
				cfg.Reaper.PageSize = pageSize
			}

			core, err := daemon.BuildCore(cfg)
			if err != nil {
				return err
			}

			ctx, stop := daemon.WaitForShutdown()
			defer stop()

			res, sweepErr := core.Runner.Run(ctx)
			closeErr := core.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if sweepErr != nil {
				return fmt.Errorf("sweep failed: %w", errors.Join(sweepErr, closeErr))
			}
			return closeErr
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "override reaper.maxAge for this run")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "override reaper.pageSize for this run")
	return cmd
}
