// Package config provides configuration types and loading for the
// atlas CLI. Configuration comes from an atlas.yaml file, overridden
// by ATLAS_* environment variables, overridden by command-line flags.
package config

import (
	"os"
	"path/filepath"
)

// Config is the top-level configuration for the atlas CLI.
type Config struct {
	// API configures the backend the client talks to.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Credentials configures durable credential storage.
	Credentials CredentialsConfig `yaml:"credentials" mapstructure:"credentials"`

	// Cache configures the in-memory GET response cache.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// RequestLog configures the local request journal.
	RequestLog RequestLogConfig `yaml:"request_log" mapstructure:"request_log"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "warn" so the CLI stays quiet unless asked.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// Trace enables stdout trace export for debugging request flows.
	Trace bool `yaml:"trace" mapstructure:"trace"`
}

// APIConfig configures the backend endpoint.
type APIConfig struct {
	// BaseURL is the root URL of the API (e.g., "https://api.atlashq.io").
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`

	// Timeout is the per-request timeout (e.g., "15s", "1m").
	// Defaults to "15s".
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty,duration"`

	// UserAgent overrides the User-Agent header sent with every request.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// CredentialsConfig configures where the session credential is persisted.
type CredentialsConfig struct {
	// Path is the credential file location.
	// Defaults to ~/.atlas/credentials.json.
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig configures the GET response cache.
type CacheConfig struct {
	// Enabled turns response caching on or off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// TTL is how long a cached response stays fresh (e.g., "30s").
	// Defaults to "30s" when the cache is enabled.
	TTL string `yaml:"ttl" mapstructure:"ttl" validate:"omitempty,duration"`

	// MaxSize is the maximum number of cached responses.
	// Defaults to 256.
	MaxSize int `yaml:"max_size" mapstructure:"max_size" validate:"omitempty,min=1"`
}

// RequestLogConfig configures the append-only request journal.
type RequestLogConfig struct {
	// Path is the journal file location. Empty disables the journal.
	Path string `yaml:"path" mapstructure:"path"`

	// MaxBytes is the rotation threshold for the journal file.
	// Defaults to 10 MiB.
	MaxBytes int64 `yaml:"max_bytes" mapstructure:"max_bytes" validate:"omitempty,min=1024"`
}

// DefaultCredentialsPath returns the standard credential file location,
// ~/.atlas/credentials.json. Falls back to a relative path when the home
// directory cannot be determined.
func DefaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".atlas", "credentials.json")
	}
	return filepath.Join(home, ".atlas", "credentials.json")
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	if c.API.Timeout == "" {
		c.API.Timeout = "15s"
	}

	if c.Credentials.Path == "" {
		c.Credentials.Path = DefaultCredentialsPath()
	}

	if c.Cache.TTL == "" {
		c.Cache.TTL = "30s"
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 256
	}

	if c.RequestLog.MaxBytes == 0 {
		c.RequestLog.MaxBytes = 10 << 20
	}

	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}
