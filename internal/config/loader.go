package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/encore/internal/domain/model"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ENCORE_CONFIG is set
//  3. env (prefix ENCORE_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("ENCORE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: ENCORE_ADDR, ENCORE_DB_PATH, ...
	// Underscores are preserved so keys match the koanf tags.
	envProvider := env.Provider("ENCORE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "encore_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if c.RefreshIntervalSeconds < 1 {
		return fmt.Errorf("%w: refresh_interval_seconds must be positive", ErrInvalidConfig)
	}
	if c.RankingDepth < 1 {
		return fmt.Errorf("%w: ranking_depth must be positive", ErrInvalidConfig)
	}
	if c.MinParticipants < 1 {
		return fmt.Errorf("%w: min_participants must be positive", ErrInvalidConfig)
	}
	if _, err := model.ParseMode(c.PrimaryMode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// DefaultSettings exposes the configured per-event defaults.
func (c *Config) DefaultSettings() model.EventSettings {
	mode, err := model.ParseMode(c.PrimaryMode)
	if err != nil {
		mode = model.ModeConsensus
	}
	return model.EventSettings{
		RankingDepth:    c.RankingDepth,
		MinParticipants: c.MinParticipants,
		GapThreshold:    c.GapThreshold,
		PrimaryMode:     mode,
	}
}
