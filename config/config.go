// Package config provides configuration loading for the storyrules player.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the complete player configuration.
type Config struct {
	Player    PlayerConfig    `yaml:"player"`
	SaveDir   string          `yaml:"save_dir"`
	Narration NarrationConfig `yaml:"narration"`
	// Seed for the turn scheduler; 0 means derive one from the clock.
	Seed int64 `yaml:"seed"`
}

// PlayerConfig describes the thing that represents the user.
type PlayerConfig struct {
	Name string   `yaml:"name"`
	Tags []string `yaml:"tags"`
}

// NarrationConfig configures the diagnostic narration sink.
type NarrationConfig struct {
	// Prefix marks narration lines (default "#").
	Prefix string `yaml:"prefix"`
	// Quiet drops engine narration and keeps only story output.
	Quiet bool `yaml:"quiet"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Player: PlayerConfig{
			Name: "user",
			Tags: []string{"character", "visible", "touchable"},
		},
		SaveDir: ".",
		Narration: NarrationConfig{
			Prefix: "#",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Player.Name == "" {
		return fmt.Errorf("player.name is required")
	}
	if len(c.Player.Tags) == 0 {
		return fmt.Errorf("player.tags must name at least one tag")
	}
	for _, t := range c.Player.Tags {
		if t == "" {
			return fmt.Errorf("player.tags contains an empty tag")
		}
	}
	if c.SaveDir == "" {
		return fmt.Errorf("save_dir is required")
	}
	return nil
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SavePath resolves a save file name against SaveDir. Absolute names are
// returned unchanged.
func (c *Config) SavePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.SaveDir, name)
}
