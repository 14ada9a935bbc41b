package cmd

import (
	"github.com/spf13/cobra"

	"github.com/taskdeck/core/cli"
	"github.com/taskdeck/core/config"
	"github.com/taskdeck/core/pkg/aggregator"
	"github.com/taskdeck/core/pkg/providers"
	"github.com/taskdeck/core/pkg/providers/claude"
	"github.com/taskdeck/core/pkg/providers/codex"
)

// buildRegistry constructs the provider registry from configuration.
// Providers default to enabled; an explicit enabled:false leaves one out.
func buildRegistry(cfg *config.Config) (*providers.Registry, error) {
	registry := providers.NewRegistry()

	if cfg.Claude().On() {
		adapter, err := claude.NewFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	if cfg.Codex().On() {
		adapter, err := codex.NewFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// buildAggregator resolves configuration for the command and assembles the
// aggregator plus its registry.
func buildAggregator(cmd *cobra.Command) (*aggregator.Aggregator, *providers.Registry, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}

	agg, err := aggregator.New(aggregator.Options{Registry: registry})
	if err != nil {
		return nil, nil, err
	}
	return agg, registry, nil
}
