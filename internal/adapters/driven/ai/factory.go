package ai

import (
	"fmt"

	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// Provider names accepted by the factory.
const (
	ProviderOpenAI = "openai"
)

// Settings configures an AI service created by the factory.
type Settings struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// IsConfigured reports whether the settings name a provider.
func (s Settings) IsConfigured() bool {
	return s.Provider != ""
}

// Factory creates AI services based on configuration
type Factory struct{}

// NewFactory creates a new AI service factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateEmbeddingService creates an embedding service from settings.
// Unconfigured settings yield nil, nil: the capability is simply absent.
func (f *Factory) CreateEmbeddingService(settings Settings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates an LLM service from settings.
// Unconfigured settings yield nil, nil: the capability is simply absent.
func (f *Factory) CreateLLMService(settings Settings) (driven.LLMService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOpenAI:
		return NewOpenAILLM(settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
