package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"gemini", "openai", "offline"}, cfg.LLM.ProviderOrder)
	assert.Equal(t, "127.0.0.1:8710", cfg.Server.Addr)
	assert.NotEmpty(t, cfg.Database.DataDir)
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.Database.DataDir = "" }},
		{"empty provider order", func(c *Config) { c.LLM.ProviderOrder = nil }},
		{"unconfigured provider", func(c *Config) { c.LLM.ProviderOrder = []string{"mistral"} }},
		{"zero timeout", func(c *Config) { c.LLM.RequestTimeoutSec = 0 }},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero notify timeout", func(c *Config) { c.Notify.TimeoutSec = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOfflineNeedsNoProviderEntry(t *testing.T) {
	cfg := Default()
	cfg.LLM.ProviderOrder = []string{"offline"}
	cfg.LLM.Providers = nil

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromPathCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config file should have been written")
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Server.Addr = "127.0.0.1:9999"
	cfg.Notify.Channel = "ops"
	require.NoError(t, cfg.SaveToPath(path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", loaded.Server.Addr)
	assert.Equal(t, "ops", loaded.Notify.Channel)
}
