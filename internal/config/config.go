package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultRequestTimeoutSeconds = 30
	defaultMaxOutputTokens       = 2048
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`

	// RequestTimeoutSeconds is the wrapping per-request generation deadline.
	// It is applied at the HTTP boundary, not inside the pipeline.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// BackendConfig captures authentication and model selection for the
// generation backend.
type BackendConfig struct {
	// APIKey authenticates against the backend. When empty, the
	// OPENAI_API_KEY environment variable is used.
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	// Model runs structured and text generation.
	Model string `yaml:"model"`

	// ClassifierModel runs intent detection; defaults to Model when empty.
	ClassifierModel string `yaml:"classifier_model"`

	MaxOutputTokens int64 `yaml:"max_output_tokens"`
}

// RequestTimeout returns the configured per-request deadline.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// Load reads YAML configuration from disk, applies defaults and environment
// fallbacks, and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Backend.APIKey) == "" {
		c.Backend.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Backend.ClassifierModel == "" {
		c.Backend.ClassifierModel = c.Backend.Model
	}
	if c.Backend.MaxOutputTokens == 0 {
		c.Backend.MaxOutputTokens = defaultMaxOutputTokens
	}
	if c.Server.RequestTimeoutSeconds == 0 {
		c.Server.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("server.request_timeout_seconds must not be negative, got %d", c.Server.RequestTimeoutSeconds)
	}
	if strings.TrimSpace(c.Backend.APIKey) == "" {
		return fmt.Errorf("backend.api_key must be provided (or set OPENAI_API_KEY)")
	}
	if strings.TrimSpace(c.Backend.Model) == "" {
		return fmt.Errorf("backend.model must be provided")
	}
	if c.Backend.MaxOutputTokens < 0 {
		return fmt.Errorf("backend.max_output_tokens must not be negative, got %d", c.Backend.MaxOutputTokens)
	}
	return nil
}
