package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Claude: ClaudeConfig{
			APIKey:         "sk-ant-test",
			Model:          "claude-haiku-4-5-20251001",
			Temperature:    0.3,
			MaxTokens:      4000,
			MaxRetries:     2,
			TimeoutSeconds: 60,
		},
		Storage:  StorageConfig{Driver: "sqlite", Path: "/tmp/rapport.db"},
		Playbook: PlaybookConfig{EvidenceCap: 100},
		API:      APIConfig{ListenAddr: ":8080", Owner: "local"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidateAccepts(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	memory := validConfig()
	memory.Storage = StorageConfig{Driver: "memory"}
	require.NoError(t, memory.Validate(), "memory driver needs no path")

	zeroRetries := validConfig()
	zeroRetries.Claude.MaxRetries = 0
	require.NoError(t, zeroRetries.Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model", func(c *Config) { c.Claude.Model = "" }},
		{"negative temperature", func(c *Config) { c.Claude.Temperature = -0.1 }},
		{"temperature above one", func(c *Config) { c.Claude.Temperature = 1.5 }},
		{"zero max tokens", func(c *Config) { c.Claude.MaxTokens = 0 }},
		{"negative retries", func(c *Config) { c.Claude.MaxRetries = -1 }},
		{"zero timeout", func(c *Config) { c.Claude.TimeoutSeconds = 0 }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Storage.Path = "" }},
		{"zero evidence cap", func(c *Config) { c.Playbook.EvidenceCap = 0 }},
		{"empty owner", func(c *Config) { c.API.Owner = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("RAPPORT_STORAGE_PATH", t.TempDir()+"/rapport.db")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-test", cfg.Claude.APIKey)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Claude.Model)
	assert.Equal(t, 0.3, cfg.Claude.Temperature)
	assert.Equal(t, int64(4000), cfg.Claude.MaxTokens)
	assert.Equal(t, DefaultMaxRetries, cfg.Claude.MaxRetries)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, DefaultEvidenceCap, cfg.Playbook.EvidenceCap)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Equal(t, "local", cfg.API.Owner)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RAPPORT_API_LISTEN_ADDR", ":9999")
	t.Setenv("RAPPORT_API_AUTH_TOKEN", "secret")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.API.ListenAddr)
	assert.Equal(t, "secret", cfg.API.AuthToken)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "***", maskAPIKey(""))
	assert.Equal(t, "***", maskAPIKey("short"))
	masked := maskAPIKey("sk-ant-api-0123456789")
	assert.Equal(t, "sk-a****6789", masked)
	assert.NotContains(t, ClaudeConfig{APIKey: "sk-ant-api-0123456789"}.String(), "0123456789")
}
