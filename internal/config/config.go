// Package config reads and writes the top-level accountantiq.yaml
// file, with optional ACCOUNTANTIQ_* environment overrides for
// deployments where editing a file is inconvenient.
package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level accountantiq.yaml configuration.
type Config struct {
	DataRoot string        `yaml:"data_root"`
	Server   ServerConfig  `yaml:"server"`
	Matcher  MatcherConfig `yaml:"matcher"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// MatcherConfig tunes the suggestion engine.
type MatcherConfig struct {
	// MinSimilarity is the fuzzy-tier floor on the 0-100 similarity scale.
	MinSimilarity int `yaml:"min_similarity"`
	// AutoCreateFloor is the minimum confidence for promoting a fresh
	// suggestion into a rule during import with auto-create enabled.
	AutoCreateFloor float64 `yaml:"auto_create_floor"`
}

// envOverrides are flat environment variables layered on top of the
// file; empty values leave the file setting in place.
type envOverrides struct {
	DataRoot string `koanf:"ACCOUNTANTIQ_DATA_ROOT"`
	Listen   string `koanf:"ACCOUNTANTIQ_LISTEN"`
}

// Load reads an accountantiq.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault reads the config file if it exists, otherwise returns
// defaults, and applies environment overrides in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ApplyEnv layers ACCOUNTANTIQ_* environment variables over the config.
func (c *Config) ApplyEnv() error {
	k := koanf.New(".")
	if err := k.Load(env.Provider("ACCOUNTANTIQ_", ".", nil), nil); err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}

	var ov envOverrides
	if err := k.UnmarshalWithConf("", &ov, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return fmt.Errorf("parsing environment overrides: %w", err)
	}

	if ov.DataRoot != "" {
		c.DataRoot = ov.DataRoot
	}
	if ov.Listen != "" {
		c.Server.Listen = ov.Listen
	}
	return nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DataRoot: "data",
		Server: ServerConfig{
			Listen: ":8420",
		},
		Matcher: MatcherConfig{
			MinSimilarity:   60,
			AutoCreateFloor: 0.80,
		},
	}
}
