package main

import (
	"strings"

	"github.com/elee1766/agent007/src/config"
)

// configOverrides are per-command settings layered over the global flags.
type configOverrides struct {
	Render string
	Stream *bool
	Record *bool
}

// loadConfig loads the effective configuration for cli.
func loadConfig(cli *CLI, extra configOverrides) (*config.Config, []config.LoadedSource, error) {
	paths := config.GetConfigPaths()
	paths.ExplicitConfig = cli.ConfigFile

	loader := config.NewLoader(paths).WithOverrides(config.Overrides{
		Provider:    cli.Provider,
		BaseURL:     cli.BaseURL,
		APIKey:      cli.APIKey,
		Model:       cli.Model,
		Temperature: cli.Temperature,
		LogLevel:    cli.LogLevel,
		Render:      extra.Render,
		Stream:      extra.Stream,
		Record:      extra.Record,
	})

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, &ConfigError{Err: err}
	}
	return cfg, loader.Sources(), nil
}

// maskAPIKey masks an API key for display
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// enabled turns a boolean flag into an override. An unset flag leaves the
// configured value alone.
func enabled(flag bool) *bool {
	if !flag {
		return nil
	}
	return &flag
}
