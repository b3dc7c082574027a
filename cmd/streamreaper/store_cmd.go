// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/streamreaper/internal/broadcast/store"
	"github.com/ManuGH/streamreaper/internal/daemon"
	"github.com/ManuGH/streamreaper/internal/persistence/sqlite"
	"github.com/spf13/cobra"
)

func newStoreCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect the broadcast store",
	}
	cmd.AddCommand(newStoreVerifyCmd(opts))
	return cmd
}

func newStoreVerifyCmd(opts *rootOptions) *cobra.Command {
	var mode string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check store connectivity and, for sqlite, file integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			storeCfg := daemon.StoreConfig(cfg)
			if storeCfg.Backend == store.BackendSqlite {
				problems, err := sqlite.VerifyIntegrity(ctx, storeCfg.Path, mode, store.SqliteTable)
				if err != nil {
					return err
				}
				if len(problems) > 0 {
					for _, p := range problems {
						fmt.Fprintln(cmd.ErrOrStderr(), "  "+p)
					}
					return fmt.Errorf("sqlite integrity check failed for %s", storeCfg.Path)
				}
			}

			st, err := store.OpenStore(storeCfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.Ping(ctx); err != nil {
				return fmt.Errorf("store ping: %w", err)
			}
			n, err := st.Count(ctx)
			if err != nil {
				return fmt.Errorf("store count: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s store ok (%d broadcasts)\n", storeCfg.Backend, n)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", sqlite.VerifyQuick, "sqlite check mode: "+sqlite.VerifyQuick+" or "+sqlite.VerifyFull)
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}
