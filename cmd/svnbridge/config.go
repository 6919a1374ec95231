package main

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// ServeConfig is the serve subcommand's config file shape, grounded on
// gitp4transfer/config's Unmarshal+validate pattern.
type ServeConfig struct {
	Listen string `yaml:"listen"`
	Root   string `yaml:"root"`
}

func defaultServeConfig() *ServeConfig {
	return &ServeConfig{Listen: ":8080", Root: "/repo"}
}

// loadServeConfig reads a YAML config file, falling back to the
// defaults untouched when path is empty.
func loadServeConfig(path string) (*ServeConfig, error) {
	cfg := defaultServeConfig()
	if path == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServeConfig) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Root == "" || c.Root[0] != '/' {
		return fmt.Errorf("root %q must be an absolute path", c.Root)
	}
	return nil
}
