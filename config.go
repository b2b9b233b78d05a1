package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/astei/anvilsurface/anvil"
)

const (
	formatJSON    = "json"
	formatSurface = "surface"
)

type Config struct {
	BatchSize int    `yaml:"batch_size"`
	Regions   int    `yaml:"regions"`
	Output    string `yaml:"output"`
	Format    string `yaml:"format"`
	Quiet     bool   `yaml:"quiet"`
}

func DefaultConfig() Config {
	return Config{
		BatchSize: anvil.DefaultBatchSize,
		Regions:   1,
		Output:    "-",
		Format:    formatJSON,
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Regions <= 0 {
		return fmt.Errorf("regions must be positive, got %d", c.Regions)
	}
	switch c.Format {
	case formatJSON, formatSurface:
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}
