// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields flat with koanf tags; layer defaults, file, then env.
// - Provide New() for defaults and Load(ctx) for the full stack.
// - External errors are wrapped via this package's sentinel kinds.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the sqlite catalog file.
	DBPath string `koanf:"db_path"`

	// RefreshIntervalSeconds sets the background recompute cadence.
	RefreshIntervalSeconds int `koanf:"refresh_interval_seconds"`

	// Defaults applied to newly created events that omit a setting.
	RankingDepth    int    `koanf:"ranking_depth"`
	MinParticipants int    `koanf:"min_participants"`
	GapThreshold    int    `koanf:"gap_threshold"`
	PrimaryMode     string `koanf:"primary_mode"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9090",
		DBPath:                 "encore.db",
		RefreshIntervalSeconds: 10,
		RankingDepth:           10,
		MinParticipants:        3,
		GapThreshold:           3,
		PrimaryMode:            "consensus",
	}
}
