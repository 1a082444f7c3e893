// Package config provides the client configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the Distiller client configuration.
type Config struct {
	// ServerDirs are the directories scanned for MCP server entry points.
	ServerDirs []string `yaml:"server_dirs"`
	// ConnectTimeout bounds a connect attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// DisconnectTimeout bounds the backend cleanup during disconnect.
	DisconnectTimeout time.Duration `yaml:"disconnect_timeout"`
	// DiscoveryTTL is the validity window for cached discovery results.
	DiscoveryTTL time.Duration `yaml:"discovery_ttl"`
	// DebugEvents logs every dispatched event with its type tag.
	DebugEvents bool `yaml:"debug_events"`
	// HistoryDB is the conversation history database path. Empty keeps
	// the conversation in memory only.
	HistoryDB string `yaml:"history_db"`
	// HistoryLimit caps how many persisted messages are loaded at start.
	HistoryLimit int `yaml:"history_limit"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		ServerDirs:        []string{filepath.Join(home, ".distiller", "servers")},
		ConnectTimeout:    30 * time.Second,
		DisconnectTimeout: 5 * time.Second,
		DiscoveryTTL:      5 * time.Second,
		DebugEvents:       false,
		HistoryDB:         filepath.Join(home, ".distiller", "history.db"),
		HistoryLimit:      200,
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadFromHome loads configuration from ~/.distiller/config.yaml.
func LoadFromHome() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	path := filepath.Join(home, ".distiller", "config.yaml")
	return Load(path)
}

// Save saves configuration to a YAML file, creating parent directories
// if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if len(c.ServerDirs) == 0 {
		return fmt.Errorf("server_dirs must list at least one directory")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive")
	}
	if c.DisconnectTimeout <= 0 {
		return fmt.Errorf("disconnect_timeout must be positive")
	}
	if c.DiscoveryTTL <= 0 {
		return fmt.Errorf("discovery_ttl must be positive")
	}
	return nil
}
