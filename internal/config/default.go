package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultYAML renders a starter atlas.yaml for the given API base URL.
// Used by "atlas config init".
func DefaultYAML(baseURL string) ([]byte, error) {
	cfg := Config{
		API: APIConfig{BaseURL: baseURL},
		Cache: CacheConfig{
			Enabled: true,
		},
	}
	cfg.SetDefaults()

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render default config: %w", err)
	}
	header := []byte("# atlas configuration. Values can be overridden with ATLAS_* environment variables.\n")
	return append(header, out...), nil
}
