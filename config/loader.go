package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ============================================================================
// CONFIG LOADING
// ============================================================================

// Load reads an AgentConfig from a YAML file. A .env file next to the
// working directory is loaded first (best effort) so ${VAR} expansion in the
// YAML can see it. Absent keys keep DefaultConfig values.
func Load(path string) (AgentConfig, error) {
	cfg := DefaultConfig()

	// Not an error when missing; explicit env always wins.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromMap builds an AgentConfig from a generic map, e.g. a config fragment
// embedded in a larger document. Duration fields accept Go duration strings
// ("30s", "5m").
func FromMap(values map[string]interface{}) (AgentConfig, error) {
	cfg := DefaultConfig()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &cfg,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(values); err != nil {
		return cfg, fmt.Errorf("failed to decode config map: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
