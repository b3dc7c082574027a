// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command streamreaper runs the broadcast lifetime reaper.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ManuGH/streamreaper/internal/config"
	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/ManuGH/streamreaper/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "streamreaper",
		Short:         "Stop and delete broadcasts that outlive their maximum lifetime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"path to YAML config file (default $"+config.EnvPrefix+"CONFIG)")

	root.AddCommand(
		newServeCmd(opts),
		newSweepCmd(opts),
		newConfigCmd(opts),
		newStoreCmd(opts),
		newHealthcheckCmd(),
		newVersionCmd(),
	)
	return root
}

// resolveConfigPath prefers --config, then $STREAMREAPER_CONFIG.
func (o *rootOptions) resolveConfigPath() string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(config.EnvPrefix + "CONFIG"))
}

// load resolves the effective configuration and reconfigures logging from it.
func (o *rootOptions) load() (config.AppConfig, *config.Loader, error) {
	path := o.resolveConfigPath()
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		if path != "" {
			return cfg, nil, fmt.Errorf("configuration error in %s: %w", path, err)
		}
		return cfg, nil, fmt.Errorf("configuration error: %w", err)
	}
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	return cfg, loader, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "streamreaper "+version.String())
		},
	}
}
