package llm

import (
	"context"
	"fmt"
)

// Request is one completion call
type Request struct {
	Prompt    string
	Model     string
	MaxTokens int
	// JSON asks the provider for a JSON object response where supported
	JSON bool
}

// Client is an abstraction over LLM providers. Implementations return *ProviderError
// for every failure so callers can decide whether to retry.
type Client interface {
	// Complete generates text for the request
	Complete(ctx context.Context, req Request) (string, error)
	// Provider identifies the backing provider
	Provider() Provider
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig(ProviderGemini)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for provider %s", config.Provider)
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey), nil
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}
