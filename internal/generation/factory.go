package generation

import (
	"context"
	"fmt"
	"strings"

	"solace/internal/logging"
)

// ProviderConfig selects and configures one backend.
type ProviderConfig struct {
	Kind    string // "openai", "anthropic", "gemini" or "" for none
	APIKey  string
	BaseURL string
	Model   string
}

// NewProvider builds a provider from config. An empty kind or missing
// credentials yield a nil provider, which the router treats as an
// immediate fallback.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if kind == "" || cfg.APIKey == "" {
		logging.Generation("provider %q not configured, fallback only", cfg.Kind)
		return nil, nil
	}

	switch kind {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}), nil
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}
