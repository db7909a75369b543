package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration, loadable from a YAML file.
type Config struct {
	Addr            string `yaml:"addr"`
	DataDir         string `yaml:"data_dir"`
	DefaultLanguage string `yaml:"default_language"`
	MaxSourceBytes  int    `yaml:"max_source_bytes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:            ":8080",
		DataDir:         "./data",
		DefaultLanguage: "python",
	}
}

// Load reads a YAML config file and overlays it on the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
