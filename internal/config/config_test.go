package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.SetDefaults()

	if cfg.API.Timeout != "15s" {
		t.Errorf("API.Timeout = %q, want %q", cfg.API.Timeout, "15s")
	}
	if cfg.Credentials.Path == "" {
		t.Error("Credentials.Path should default to the home location")
	}
	if cfg.Cache.TTL != "30s" {
		t.Errorf("Cache.TTL = %q, want %q", cfg.Cache.TTL, "30s")
	}
	if cfg.Cache.MaxSize != 256 {
		t.Errorf("Cache.MaxSize = %d, want 256", cfg.Cache.MaxSize)
	}
	if cfg.RequestLog.MaxBytes != 10<<20 {
		t.Errorf("RequestLog.MaxBytes = %d, want %d", cfg.RequestLog.MaxBytes, 10<<20)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
}

func TestConfig_SetDefaults_PreservesExistingValues(t *testing.T) {
	t.Parallel()

	cfg := Config{
		API: APIConfig{
			BaseURL: "https://api.example.com",
			Timeout: "45s",
		},
		Credentials: CredentialsConfig{Path: "/tmp/creds.json"},
		Cache:       CacheConfig{Enabled: true, TTL: "5s", MaxSize: 8},
		LogLevel:    "debug",
	}

	cfg.SetDefaults()

	if cfg.API.Timeout != "45s" {
		t.Errorf("API.Timeout was overwritten: got %q", cfg.API.Timeout)
	}
	if cfg.Credentials.Path != "/tmp/creds.json" {
		t.Errorf("Credentials.Path was overwritten: got %q", cfg.Credentials.Path)
	}
	if cfg.Cache.TTL != "5s" || cfg.Cache.MaxSize != 8 {
		t.Errorf("cache settings overwritten: %+v", cfg.Cache)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel was overwritten: got %q", cfg.LogLevel)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, true},
		{"bad base url", func(c *Config) { c.API.BaseURL = "not a url" }, true},
		{"bad timeout", func(c *Config) { c.API.Timeout = "fast" }, true},
		{"negative timeout", func(c *Config) { c.API.Timeout = "-3s" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"bad cache ttl", func(c *Config) { c.Cache.TTL = "soon" }, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Config{API: APIConfig{BaseURL: "https://api.example.com"}}
			cfg.SetDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ParsedDurations(t *testing.T) {
	t.Parallel()

	cfg := Config{
		API:   APIConfig{BaseURL: "https://api.example.com", Timeout: "20s"},
		Cache: CacheConfig{Enabled: true, TTL: "10s"},
	}
	cfg.SetDefaults()

	if got := cfg.APITimeout(); got != 20*time.Second {
		t.Errorf("APITimeout() = %v, want 20s", got)
	}
	if got := cfg.CacheTTL(); got != 10*time.Second {
		t.Errorf("CacheTTL() = %v, want 10s", got)
	}

	cfg.Cache.Enabled = false
	if got := cfg.CacheTTL(); got != 0 {
		t.Errorf("CacheTTL() with cache disabled = %v, want 0", got)
	}
}

func TestFindConfigFileInPaths_EmptyDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	got := findConfigFileInPaths([]string{dir})
	if got != "" {
		t.Errorf("findConfigFileInPaths(empty dir) = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_MatchesYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "atlas.yaml")
	_ = os.WriteFile(cfgPath, []byte("api:\n  base_url: https://api.example.com\n"), 0644)

	got := findConfigFileInPaths([]string{dir})
	if got != cfgPath {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, cfgPath)
	}
}

func TestFindConfigFileInPaths_IgnoresNoExtension(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// Simulate the binary: a file named "atlas" with no extension
	_ = os.WriteFile(filepath.Join(dir, "atlas"), []byte("\x7fELF binary"), 0755)

	got := findConfigFileInPaths([]string{dir})
	if got != "" {
		t.Errorf("findConfigFileInPaths matched binary = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_PrefersYAMLOverYML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "atlas.yaml")
	ymlPath := filepath.Join(dir, "atlas.yml")
	_ = os.WriteFile(yamlPath, []byte("log_level: info\n"), 0644)
	_ = os.WriteFile(ymlPath, []byte("log_level: debug\n"), 0644)

	got := findConfigFileInPaths([]string{dir})
	if got != yamlPath {
		t.Errorf("findConfigFileInPaths = %q, want %q (.yaml preferred)", got, yamlPath)
	}
}
