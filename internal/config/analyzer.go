package config

import (
	"DrowsinessMonitor/pkg/drowsiness"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
)

// LoadAnalyzerConfig reads thresholds from a YAML file on top of the defaults,
// so a file only needs the keys it changes. An empty path yields the defaults.
func LoadAnalyzerConfig(path string) (drowsiness.Config, error) {
	cfg := drowsiness.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return drowsiness.Config{}, fmt.Errorf("failed to read analyzer config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return drowsiness.Config{}, fmt.Errorf("failed to parse analyzer config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return drowsiness.Config{}, err
	}

	return cfg, nil
}
