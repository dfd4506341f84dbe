// Package config loads the Modtrack daemon configuration from a YAML
// file, falling back to defaults when the file is absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config defines the daemon configuration.
type Config struct {
	// Listen is the address the HTTP API binds to.
	Listen string `yaml:"listen"`
	// DBPath is the SQLite database location.
	DBPath string `yaml:"db"`
	// NotifyTo is the delivery address for module and stage notifications.
	// Empty means notifications go to the process log only.
	NotifyTo string `yaml:"notify_to"`
	// NotifyURL is the webhook endpoint that performs actual delivery.
	// Empty means messages are logged instead of posted.
	NotifyURL string `yaml:"notify_url"`
	// NotifyQueue is the buffered queue length for pending sends.
	NotifyQueue int `yaml:"notify_queue"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Listen:      "127.0.0.1:7467",
		DBPath:      filepath.Join(homeDir, ".modtrack", "modtrack.db"),
		NotifyQueue: 64,
	}
}

// Load reads the configuration at path, layered over defaults. A missing
// file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Listen == "" {
		cfg.Listen = Default().Listen
	}
	if cfg.DBPath == "" {
		cfg.DBPath = Default().DBPath
	}
	if cfg.NotifyQueue <= 0 {
		cfg.NotifyQueue = Default().NotifyQueue
	}
	return cfg, nil
}
