// Package config holds the typed application configuration.
// It is loaded from ~/.companion/config.yaml and can be overridden by
// environment variables with the COMPANION_ prefix. A missing or invalid
// required key is a startup-time failure, not a runtime nil.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all companion service configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Crisis   CrisisConfig   `mapstructure:"crisis" yaml:"crisis"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Notify   NotifyConfig   `mapstructure:"notify" yaml:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// DataDir is the directory holding companion.db.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// LLMConfig configures the generative-AI provider chain.
type LLMConfig struct {
	// ProviderOrder is the fallback order. The deterministic offline
	// provider is always appended as the final entry if absent, so the
	// chain can never be exhausted.
	ProviderOrder []string `mapstructure:"provider_order" yaml:"provider_order"`
	// Providers maps provider names to their specific configuration.
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
	// RequestTimeoutSec bounds each individual provider call. Exceeding it
	// counts as a provider failure and advances the chain.
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
}

// ProviderConfig contains configuration for a specific provider.
type ProviderConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model       string  `mapstructure:"model" yaml:"model,omitempty"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature,omitempty"`
}

// CrisisConfig configures crisis-language detection.
type CrisisConfig struct {
	// ExtraKeywords adds per-language keywords on top of the built-in
	// locale tables. Keys are language tags ("uk", "en").
	ExtraKeywords map[string][]string `mapstructure:"extra_keywords" yaml:"extra_keywords,omitempty"`
}

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// AdminTokenHash is the bcrypt hash of the bearer token protecting the
	// admin endpoints. Empty disables them.
	AdminTokenHash string `mapstructure:"admin_token_hash" yaml:"admin_token_hash,omitempty"`
}

// NotifyConfig configures the fire-and-forget admin notification sink.
type NotifyConfig struct {
	// WebhookURL receives crisis alert payloads. Empty means log-only.
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url,omitempty"`
	// Channel identifies the admin channel in the payload.
	Channel    string `mapstructure:"channel" yaml:"channel"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file,omitempty"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".companion")

	return &Config{
		Database: DatabaseConfig{
			DataDir: dataDir,
		},
		LLM: LLMConfig{
			ProviderOrder: []string{"gemini", "openai", "offline"},
			Providers: map[string]ProviderConfig{
				"gemini": {
					Model: "gemini-1.5-flash",
				},
				"openai": {
					Model: "gpt-4o-mini",
				},
			},
			RequestTimeoutSec: 30,
		},
		Crisis: CrisisConfig{},
		Server: ServerConfig{
			Addr: "127.0.0.1:8710",
		},
		Notify: NotifyConfig{
			Channel:    "admin-alerts",
			TimeoutSec: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dataDir, "logs", "companion.log"),
		},
	}
}

// Load reads configuration from the default location (~/.companion/config.yaml)
// and merges with environment variables.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}
	return LoadFromPath(filepath.Join(homeDir, ".companion", "config.yaml"))
}

// LoadFromPath reads configuration from a specific file path. If the file
// does not exist it is created with default values first.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example: COMPANION_LLM_PROVIDERS_GEMINI_API_KEY
	v.SetEnvPrefix("COMPANION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Database.DataDir = expandPath(cfg.Database.DataDir)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors and inconsistencies.
func (c *Config) Validate() error {
	if c.Database.DataDir == "" {
		return fmt.Errorf("database.data_dir cannot be empty")
	}

	if len(c.LLM.ProviderOrder) == 0 {
		return fmt.Errorf("llm.provider_order cannot be empty")
	}
	for _, name := range c.LLM.ProviderOrder {
		if name == "offline" {
			continue // built in, needs no entry
		}
		if _, exists := c.LLM.Providers[name]; !exists {
			return fmt.Errorf("provider '%s' listed in provider_order but not configured", name)
		}
	}
	if c.LLM.RequestTimeoutSec <= 0 {
		return fmt.Errorf("llm.request_timeout_sec must be positive")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	if c.Notify.TimeoutSec <= 0 {
		return fmt.Errorf("notify.timeout_sec must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return writeConfigFile(path, c)
}

// writeConfigFile writes a Config struct to a YAML file.
// Uses gopkg.in/yaml.v3 directly to ensure proper tag-based serialization.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
