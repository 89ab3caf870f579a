package main

import (
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"forget/internal/config"
)

// loadConfig resolves forget.toml and applies --feature overrides. The
// config path falls back to $FORGET_CONFIG before the upward search.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if path == "" {
		path = env.Str("FORGET_CONFIG", "")
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFrom(".")
	}
	if err != nil {
		return config.Config{}, err
	}
	overrides, err := flags.GetStringArray("feature")
	if err != nil {
		return config.Config{}, err
	}
	cfg.Features, err = config.ApplyFeatureFlags(cfg.Features, overrides)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
