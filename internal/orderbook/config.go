package orderbook

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// AliasConfig lets a deployment extend the header alias table without a code
// change, covering customer spreadsheets with house spellings.
type AliasConfig struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliasConfig reads and validates a YAML alias file. Every alias must
// target one of the canonical column names.
func LoadAliasConfig(path string) (*AliasConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias config: %w", err)
	}
	var config AliasConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse alias config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid alias config: %w", err)
	}
	return &config, nil
}

func (c *AliasConfig) validate() error {
	canonical := make(map[string]struct{}, len(RequiredColumns))
	for _, name := range RequiredColumns {
		canonical[name] = struct{}{}
	}
	for alias, target := range c.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("alias for column %q is empty", target)
		}
		if _, ok := canonical[target]; !ok {
			return fmt.Errorf("alias %q targets unknown column %q", alias, target)
		}
	}
	return nil
}

// MergedAliases overlays the configured aliases on DefaultAliases. Keys are
// normalized on merge, so config files may use any casing or spacing.
// Configured entries win on collision.
func (c *AliasConfig) MergedAliases() map[string]string {
	merged := make(map[string]string, len(DefaultAliases)+len(c.Aliases))
	for alias, target := range DefaultAliases {
		merged[alias] = target
	}
	for alias, target := range c.Aliases {
		merged[NormalizeHeader(alias)] = target
	}
	return merged
}
