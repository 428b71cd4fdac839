package storyforge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the router configuration.
type Config struct {
	MaxRetries int              `yaml:"max_retries"`
	Providers  []ProviderConfig `yaml:"providers"`
}

// LoadConfig reads and parses a YAML config file.
// Environment variables in the format ${VAR} are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("storyforge: read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("storyforge: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the config for required fields and consistency.
func (c Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("storyforge: config: at least one provider is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("storyforge: config: max_retries must not be negative")
	}

	names := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("storyforge: config: provider[%d]: name is required", i)
		}
		if names[p.Name] {
			return fmt.Errorf("storyforge: config: duplicate provider %q", p.Name)
		}
		names[p.Name] = true

		if p.MaxConcurrent <= 0 {
			return fmt.Errorf("storyforge: config: provider[%d] (%s): max_concurrent must be positive", i, p.Name)
		}
		if p.CostPerUnit < 0 {
			return fmt.Errorf("storyforge: config: provider[%d] (%s): cost_per_unit must not be negative", i, p.Name)
		}
		if p.MaxDailyCost < 0 {
			return fmt.Errorf("storyforge: config: provider[%d] (%s): max_daily_cost must not be negative", i, p.Name)
		}
		if len(p.Capabilities.Kinds) == 0 {
			return fmt.Errorf("storyforge: config: provider[%d] (%s): at least one capability kind is required", i, p.Name)
		}
		for _, k := range p.Capabilities.Kinds {
			if k != MediaAudio && k != MediaImage {
				return fmt.Errorf("storyforge: config: provider[%d] (%s): invalid kind %q", i, p.Name, k)
			}
		}
	}

	return nil
}
