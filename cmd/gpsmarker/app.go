package main

import (
	"fmt"

	"github.com/woozymasta/gpsmarker/internal/config"
	"github.com/woozymasta/gpsmarker/internal/store"
)

// loadConfig reads the configuration and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	return cfg, nil
}

func dataDir(cfg *config.Config) store.Dir {
	return store.NewDir(cfg.DataDir)
}
