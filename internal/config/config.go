// Package config loads process bootstrap configuration: where the shared
// store lives and how often the local loops tick. Operational parameters
// (timeouts, probe target) live in the store itself and are handled by the
// settings package.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the bootstrap configuration shared by the agent and watchdog
// binaries.
type Config struct {
	// StorePath is the SQLite database path of the shared store.
	StorePath string `mapstructure:"store_path"`

	// ListenAddr is the watchdog's HTTP listen address.
	ListenAddr string `mapstructure:"listen_addr"`

	// WatchdogTick is the reconciliation cadence.
	WatchdogTick time.Duration `mapstructure:"watchdog_tick"`

	// SettingsRefresh is how often the cached settings snapshot is reloaded.
	SettingsRefresh time.Duration `mapstructure:"settings_refresh"`

	// TimeSyncInterval is how often the agent re-syncs its clock.
	TimeSyncInterval time.Duration `mapstructure:"time_sync_interval"`

	// ProbeTimeout bounds every reachability check and external lookup.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`

	// IPEndpoint overrides the external IP lookup URL. Empty uses the
	// default.
	IPEndpoint string `mapstructure:"ip_endpoint"`
}

// Load reads configuration from an optional file, with VERINEXUS_-prefixed
// environment variables overriding file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("store_path", "verinexus.db")
	v.SetDefault("listen_addr", "0.0.0.0:8080")
	v.SetDefault("watchdog_tick", 30*time.Second)
	v.SetDefault("settings_refresh", 5*time.Minute)
	v.SetDefault("time_sync_interval", time.Hour)
	v.SetDefault("probe_timeout", 5*time.Second)
	v.SetDefault("ip_endpoint", "")

	v.SetEnvPrefix("VERINEXUS")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
