// Package config loads protoforge configuration from YAML with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all protoforge configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Model configuration
	Model ModelConfig `yaml:"model"`

	// Orchestrator configuration
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig configures the generative model client.
type ModelConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`

	// Retry policy for transport failures
	MaxRetries int    `yaml:"max_retries"`
	Backoff    string `yaml:"backoff"`
}

// OrchestratorConfig configures the session loop.
type OrchestratorConfig struct {
	MaxIterations int `yaml:"max_iterations"`

	// Conversation trimming
	TrimThreshold int `yaml:"trim_threshold"`
	KeepRecent    int `yaml:"keep_recent"`
}

// StoreConfig configures project persistence.
type StoreConfig struct {
	Backend string `yaml:"backend"` // file, sqlite
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "protoforge",
		Version: "0.4.0",

		Model: ModelConfig{
			Provider:   "openai",
			Model:      "gpt-4o",
			BaseURL:    "https://api.openai.com/v1",
			Timeout:    "120s",
			MaxRetries: 3,
			Backoff:    "1s",
		},

		Orchestrator: OrchestratorConfig{
			MaxIterations: 100,
			TrimThreshold: 15,
			KeepRecent:    8,
		},

		Store: StoreConfig{
			Backend: "sqlite",
			Path:    "data/protoforge.db",
		},

		Logging: LoggingConfig{
			Debug: false,
			File:  "protoforge.log",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields
// defaults; environment overrides always apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides lets deployment environments override file settings.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PROTOFORGE_PROVIDER"); v != "" {
		c.Model.Provider = v
	}
	if v := os.Getenv("PROTOFORGE_API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv("PROTOFORGE_MODEL"); v != "" {
		c.Model.Model = v
	}
	if v := os.Getenv("PROTOFORGE_BASE_URL"); v != "" {
		c.Model.BaseURL = v
	}
	if v := os.Getenv("PROTOFORGE_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("PROTOFORGE_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("PROTOFORGE_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Orchestrator.MaxIterations = n
		}
	}
	if v := os.Getenv("PROTOFORGE_DEBUG"); v != "" {
		c.Logging.Debug = v == "1" || v == "true"
	}
}
