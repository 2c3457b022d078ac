// Package config loads poold runtime configuration from an optional file
// (yaml/json/toml by extension) with a POOLD_* environment overlay.
package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level" split_words:"true"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" split_words:"true"`

	// Process supervisor.
	ServeBinary      string   `json:"serve_binary" yaml:"serve_binary" toml:"serve_binary" split_words:"true"`
	ServeExtraArgs   []string `json:"serve_extra_args" yaml:"serve_extra_args" toml:"serve_extra_args" split_words:"true"`
	PortRangeStart   int      `json:"port_range_start" yaml:"port_range_start" toml:"port_range_start" split_words:"true"`
	PortRangeEnd     int      `json:"port_range_end" yaml:"port_range_end" toml:"port_range_end" split_words:"true"`
	CacheDir         string   `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir" split_words:"true"`
	HealthTimeoutSec int      `json:"health_timeout_sec" yaml:"health_timeout_sec" toml:"health_timeout_sec" split_words:"true"`
	GraceTimeoutSec  int      `json:"grace_timeout_sec" yaml:"grace_timeout_sec" toml:"grace_timeout_sec" split_words:"true"`

	// Pool manager.
	FailureCooldownSec int `json:"failure_cooldown_sec" yaml:"failure_cooldown_sec" toml:"failure_cooldown_sec" split_words:"true"`
	UnhealthyTTLSec    int `json:"unhealthy_ttl_sec" yaml:"unhealthy_ttl_sec" toml:"unhealthy_ttl_sec" envconfig:"UNHEALTHY_TTL_SEC"`
	ProbeTimeoutSec    int `json:"probe_timeout_sec" yaml:"probe_timeout_sec" toml:"probe_timeout_sec" split_words:"true"`

	// Routing.
	AutoDeploy        bool     `json:"auto_deploy" yaml:"auto_deploy" toml:"auto_deploy" split_words:"true"`
	LocalPatterns     []string `json:"local_patterns" yaml:"local_patterns" toml:"local_patterns" split_words:"true"`
	RemotePatterns    []string `json:"remote_patterns" yaml:"remote_patterns" toml:"remote_patterns" split_words:"true"`
	RemoteBaseURL     string   `json:"remote_base_url" yaml:"remote_base_url" toml:"remote_base_url" envconfig:"REMOTE_BASE_URL"`
	RemoteAPIKey      string   `json:"remote_api_key" yaml:"remote_api_key" toml:"remote_api_key" envconfig:"REMOTE_API_KEY"`
	RetryAttempts     int      `json:"retry_attempts" yaml:"retry_attempts" toml:"retry_attempts" split_words:"true"`
	RequestTimeoutSec int      `json:"request_timeout_sec" yaml:"request_timeout_sec" toml:"request_timeout_sec" split_words:"true"`

	// CORS (opt-in).
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" envconfig:"CORS_ENABLED"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" envconfig:"CORS_ORIGINS"`
}

// FromEnv overlays POOLD_* environment variables on cfg. Unset variables
// leave the corresponding fields untouched.
func FromEnv(cfg Config) (Config, error) {
	if err := envconfig.Process("poold", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WithDefaults fills unspecified fields.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8090"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.FailureCooldownSec <= 0 {
		c.FailureCooldownSec = 300
	}
	if c.UnhealthyTTLSec <= 0 {
		c.UnhealthyTTLSec = 90
	}
	if c.ProbeTimeoutSec <= 0 {
		c.ProbeTimeoutSec = 2
	}
	return c
}
