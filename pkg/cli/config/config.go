package config

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"github.com/secmon-lab/briareus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the application configuration loaded from a TOML file.
// It carries per-channel overrides applied to the sync state store at startup.
type AppConfig struct {
	path string

	Channels []ChannelOverride `toml:"channel"`
}

// ChannelOverride tunes sync behavior for a single channel
type ChannelOverride struct {
	ID     string `toml:"id"`
	Active *bool  `toml:"active"`
}

// Validate checks if the ChannelOverride is valid
func (c *ChannelOverride) Validate() error {
	id := types.ChannelID(c.ID)
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid channel ID", goerr.V("id", c.ID))
	}
	return nil
}

func (x *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to TOML configuration file with per-channel overrides",
			Category:    "Config",
			Sources:     cli.EnvVars("BRIAREUS_CONFIG"),
			Destination: &x.path,
		},
	}
}

// Validate checks if the AppConfig is valid
func (x *AppConfig) Validate() error {
	channelIDs := make(map[string]bool)
	for _, ch := range x.Channels {
		if err := ch.Validate(); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid channel override", goerr.V("id", ch.ID))
		}
		if channelIDs[ch.ID] {
			return goerr.Wrap(ErrDuplicateChannelID, "duplicate channel override", goerr.V("id", ch.ID))
		}
		channelIDs[ch.ID] = true
	}
	return nil
}

// Load reads and validates the configuration file. Returns an empty config
// when no path is configured.
func (x *AppConfig) Load() error {
	if x.path == "" {
		return nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(x.path)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", x.path))
	}

	if err := toml.Unmarshal(data, x); err != nil {
		return goerr.Wrap(err, "failed to parse TOML config", goerr.V("path", x.path))
	}

	if err := x.Validate(); err != nil {
		return goerr.Wrap(err, "config validation failed", goerr.V("path", x.path))
	}

	return nil
}

// Apply writes the channel overrides into the sync state store
func (x *AppConfig) Apply(ctx context.Context, repo interfaces.Repository) error {
	for _, ch := range x.Channels {
		if ch.Active == nil {
			continue
		}
		update := &model.SyncStateUpdate{IsActive: ch.Active}
		if err := repo.SyncState().Upsert(ctx, types.ChannelID(ch.ID), update); err != nil {
			return goerr.Wrap(err, "failed to apply channel override", goerr.V("id", ch.ID))
		}
		logging.From(ctx).Info("Applied channel override", "channel_id", ch.ID, "active", *ch.Active)
	}
	return nil
}
