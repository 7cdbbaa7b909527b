package generator

import (
	"fmt"
	"os"
	"strings"
)

// Config holds generator configuration
type Config struct {
	Provider  string
	APIKey    string
	Host      string
	CacheSize int
}

// NewFromEnv creates a generator based on environment variables
// Priority:
// 1. DATAPREP_GENERATOR_PROVIDER (openai, ollama, template)
// 2. Check for OPENAI_API_KEY
// 3. Default to the offline template provider
func NewFromEnv() (Generator, error) {
	provider := os.Getenv(EnvProvider)
	openaiKey := os.Getenv(EnvOpenAIAPIKey)

	cache := NewCache(10000) // Default cache size

	// Explicit provider selection
	if provider != "" {
		provider = strings.ToLower(provider)
		switch provider {
		case ProviderOpenAI:
			return NewOpenAIProvider(openaiKey, cache)
		case ProviderOllama:
			return NewOllamaProvider("", cache)
		case ProviderTemplate:
			return NewTemplateProvider(cache)
		default:
			return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, provider)
		}
	}

	// Auto-detect based on available API keys
	if openaiKey != "" {
		return NewOpenAIProvider(openaiKey, cache)
	}

	// Fallback to offline template provider
	return NewTemplateProvider(cache)
}

// New creates a generator with explicit configuration
func New(cfg Config) (Generator, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderOllama:
		return NewOllamaProvider(cfg.Host, cache)
	case ProviderTemplate:
		return NewTemplateProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderTemplate
}
