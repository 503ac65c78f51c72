// Package config holds the solace configuration: YAML file with defaults,
// environment overrides for credentials and endpoints, and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all solace configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Generation providers
	Generation GenerationConfig `yaml:"generation"`

	// Emotion vector service
	Emotion EmotionConfig `yaml:"emotion"`

	// Protocol catalog
	Protocols ProtocolsConfig `yaml:"protocols"`

	// Session persistence
	Session SessionConfig `yaml:"session"`

	// Safety history persistence
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ProviderConfig configures one generation backend.
type ProviderConfig struct {
	Kind    string `yaml:"kind"` // openai, anthropic, gemini, "" for none
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// GenerationConfig configures the dual-provider router.
type GenerationConfig struct {
	Knowledge ProviderConfig `yaml:"knowledge"`
	Empathy   ProviderConfig `yaml:"empathy"`
}

// EmotionConfig configures the emotion vector service client.
type EmotionConfig struct {
	BaseURL string `yaml:"base_url"` // empty disables the service
	Timeout string `yaml:"timeout"`
}

// ProtocolsConfig configures the protocol catalog.
type ProtocolsConfig struct {
	Path  string `yaml:"path"` // empty uses the embedded catalog only
	Watch bool   `yaml:"watch"`
}

// SessionConfig configures session storage. An empty Redis address keeps
// sessions in memory.
type SessionConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// StorageConfig configures the SQLite safety history. An empty path keeps
// the history in memory.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the categorized loggers.
type LoggingConfig struct {
	Dir        string          `yaml:"dir"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "solace",
		Version: "0.3.0",

		Generation: GenerationConfig{
			Knowledge: ProviderConfig{Kind: "openai", Model: "gpt-4o-mini"},
			Empathy:   ProviderConfig{Kind: "anthropic", Model: "claude-sonnet-4-20250514"},
		},

		Emotion: EmotionConfig{
			Timeout: "5s",
		},

		Protocols: ProtocolsConfig{
			Watch: true,
		},

		Logging: LoggingConfig{
			Dir:   "logs",
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist, and applies environment overrides.
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

// applyEnvOverrides applies environment variable overrides. Credentials
// never live in the config file.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Generation.Knowledge.Kind == "openai" {
		c.Generation.Knowledge.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && c.Generation.Empathy.Kind == "anthropic" {
		c.Generation.Empathy.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.Generation.Knowledge.Kind == "gemini" {
			c.Generation.Knowledge.APIKey = key
		}
		if c.Generation.Empathy.Kind == "gemini" {
			c.Generation.Empathy.APIKey = key
		}
	}

	if url := os.Getenv("SOLACE_EMOTION_URL"); url != "" {
		c.Emotion.BaseURL = url
	}
	if addr := os.Getenv("SOLACE_REDIS_ADDR"); addr != "" {
		c.Session.RedisAddr = addr
	}
	if path := os.Getenv("SOLACE_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if path := os.Getenv("SOLACE_PROTOCOLS"); path != "" {
		c.Protocols.Path = path
	}
}

// EmotionTimeout returns the emotion service timeout as a duration.
func (c *Config) EmotionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Emotion.Timeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

var validProviderKinds = map[string]bool{"": true, "openai": true, "anthropic": true, "gemini": true}

// Validate validates the configuration. Missing provider credentials are
// not an error: the router degrades to its deterministic fallback.
func (c *Config) Validate() error {
	if !validProviderKinds[c.Generation.Knowledge.Kind] {
		return fmt.Errorf("invalid knowledge provider kind: %s", c.Generation.Knowledge.Kind)
	}
	if !validProviderKinds[c.Generation.Empathy.Kind] {
		return fmt.Errorf("invalid empathy provider kind: %s", c.Generation.Empathy.Kind)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if _, err := time.ParseDuration(c.Emotion.Timeout); c.Emotion.Timeout != "" && err != nil {
		return fmt.Errorf("invalid emotion timeout: %w", err)
	}
	return nil
}
