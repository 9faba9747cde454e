package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/vetsupport/companion/internal/config"
)

// OfflineName is the reserved chain entry for the deterministic offline
// fallback. It has no Provider implementation: the orchestrator supplies
// localized canned content when the chain is exhausted.
const OfflineName = "offline"

// NewProviderByName creates a specific provider by name.
func NewProviderByName(name string, cfg *ProviderConfig) (Provider, error) {
	switch name {
	case "gemini":
		return NewGeminiProvider(cfg), nil
	case "openai":
		return NewOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// BuildChain constructs the ordered provider chain from configuration.
// The "offline" entry is skipped here; it is not an HTTP provider. Adding a
// provider means adding an implementation and a config entry, not a branch
// in calling code.
func BuildChain(cfg *config.Config) ([]Provider, error) {
	var chain []Provider

	for _, name := range cfg.LLM.ProviderOrder {
		if name == OfflineName {
			continue
		}

		providerCfg, exists := cfg.LLM.Providers[name]
		if !exists {
			return nil, fmt.Errorf("provider '%s' not found in configuration", name)
		}

		apiKey := providerCfg.APIKey
		if apiKey == "" {
			apiKey = getAPIKeyFromEnv(name)
		}

		provider, err := NewProviderByName(name, &ProviderConfig{
			Name:        name,
			Endpoint:    providerCfg.Endpoint,
			APIKey:      apiKey,
			Model:       providerCfg.Model,
			MaxTokens:   providerCfg.MaxTokens,
			Temperature: providerCfg.Temperature,
			Timeout:     time.Duration(cfg.LLM.RequestTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, err
		}

		chain = append(chain, provider)
	}

	return chain, nil
}

// getAPIKeyFromEnv retrieves the API key from standard environment variables.
func getAPIKeyFromEnv(providerName string) string {
	envVars := map[string]string{
		"gemini": "GEMINI_API_KEY",
		"openai": "OPENAI_API_KEY",
	}
	if envVar, ok := envVars[providerName]; ok {
		return os.Getenv(envVar)
	}
	return ""
}
