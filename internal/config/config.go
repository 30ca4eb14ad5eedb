// Package config loads optional defaults for the volzip CLI from a YAML
// file. Flags given on the command line always win over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the defaults a user can persist instead of repeating flags.
type Config struct {
	SevenZipPath      string   `yaml:"sevenzip_path"`
	VolumeSize        string   `yaml:"volume_size"`
	CompressionLevel  *int     `yaml:"compression_level"`
	ExcludeExtensions []string `yaml:"exclude_extensions"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "volzip", "config.yaml")
}

// Load reads and parses the configuration file. A missing file is not an
// error and yields an empty config.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(os.ExpandEnv(path))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CompressionLevel != nil && (*c.CompressionLevel < 0 || *c.CompressionLevel > 9) {
		return fmt.Errorf("compression_level must be between 0 and 9, got %d", *c.CompressionLevel)
	}
	return nil
}
