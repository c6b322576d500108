package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxRetries is how many times a failed extraction request is
	// re-sent before giving up.
	DefaultMaxRetries = 2

	// DefaultEvidenceCap bounds per-section evidence references on a playbook.
	DefaultEvidenceCap = 100
)

// Config holds all configuration for rapport.
type Config struct {
	Claude   ClaudeConfig   `mapstructure:"claude"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Playbook PlaybookConfig `mapstructure:"playbook"`
	API      APIConfig      `mapstructure:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ClaudeConfig holds completion-service settings.
type ClaudeConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int64   `mapstructure:"max_tokens"`
	MaxRetries     int     `mapstructure:"max_retries"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// String returns a safe representation of ClaudeConfig with the API key masked.
func (c ClaudeConfig) String() string {
	return fmt.Sprintf("ClaudeConfig{APIKey:%s, Model:%s}", maskAPIKey(c.APIKey), c.Model)
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// StorageConfig selects and configures the knowledge store.
type StorageConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database file.
	Path string `mapstructure:"path"`
}

// PlaybookConfig holds merge-policy settings.
type PlaybookConfig struct {
	EvidenceCap int `mapstructure:"evidence_cap"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
	// Owner is the owner ID all API and CLI operations act as.
	Owner string `mapstructure:"owner"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("claude.model", "claude-haiku-4-5-20251001")
	v.SetDefault("claude.temperature", 0.3)
	v.SetDefault("claude.max_tokens", 4000)
	v.SetDefault("claude.max_retries", DefaultMaxRetries)
	v.SetDefault("claude.timeout_seconds", 60)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(homeDir(), ".rapport", "rapport.db"))

	v.SetDefault("playbook.evidence_cap", DefaultEvidenceCap)

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")
	v.SetDefault("api.owner", "local")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".rapport"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("RAPPORT")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("storage.path", "RAPPORT_STORAGE_PATH")
	_ = v.BindEnv("api.listen_addr", "RAPPORT_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "RAPPORT_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Claude.Model == "" {
		return fmt.Errorf("claude.model must not be empty")
	}
	if c.Claude.Temperature < 0 || c.Claude.Temperature > 1 {
		return fmt.Errorf("claude.temperature must be between 0 and 1")
	}
	if c.Claude.MaxTokens <= 0 {
		return fmt.Errorf("claude.max_tokens must be greater than 0")
	}
	if c.Claude.MaxRetries < 0 {
		return fmt.Errorf("claude.max_retries must be >= 0")
	}
	if c.Claude.TimeoutSeconds <= 0 {
		return fmt.Errorf("claude.timeout_seconds must be greater than 0")
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path must not be empty for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be sqlite or memory, got %q", c.Storage.Driver)
	}
	if c.Playbook.EvidenceCap <= 0 {
		return fmt.Errorf("playbook.evidence_cap must be greater than 0")
	}
	if c.API.Owner == "" {
		return fmt.Errorf("api.owner must not be empty")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
