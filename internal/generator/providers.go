package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dshills/dataprep-mcp/pkg/types"
)

// Provider configuration
const (
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
	ProviderTemplate = "template"

	// Default models
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultOllamaModel = "llama3.1"

	// Generation parameters
	DefaultTemperature = 0.7

	// Environment variables
	EnvProvider     = "DATAPREP_GENERATOR_PROVIDER"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvOllamaHost   = "OLLAMA_HOST"

	// Endpoints
	openAIChatURL     = "https://api.openai.com/v1/chat/completions"
	defaultOllamaHost = "http://localhost:11434"

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// OpenAIProvider implements Generator using the OpenAI chat completions API
type OpenAIProvider struct {
	apiKey     string
	model      string
	httpClient *http.Client
	cache      *Cache
}

// NewOpenAIProvider creates a new OpenAI generator
func NewOpenAIProvider(apiKey string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}

	return &OpenAIProvider{
		apiKey: apiKey,
		model:  DefaultOpenAIModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		cache: cache,
	}, nil
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (*types.QAPair, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.ChunkText)
	if o.cache != nil {
		if pair, ok := o.cache.Get(hash); ok {
			return pair, nil
		}
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	config := DefaultRetryConfig()
	pair, err := retryWithBackoff(ctx, config, func() (*types.QAPair, error) {
		return o.callAPI(ctx, req.ChunkText, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, MaxRetries, err)
	}

	if o.cache != nil {
		o.cache.Set(hash, pair)
	}
	return pair, nil
}

func (o *OpenAIProvider) callAPI(ctx context.Context, chunkText, model string) (*types.QAPair, error) {
	reqBody := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": SystemPrompt},
			{"role": "user", "content": BuildPrompt(chunkText)},
		},
		// Forces valid JSON output
		"response_format": map[string]string{"type": "json_object"},
		// Slight creativity for diverse questions
		"temperature": DefaultTemperature,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openAIChatURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrProviderFailed)
	}

	return parsePair(apiResp.Choices[0].Message.Content)
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// OllamaProvider implements Generator against a local Ollama server
type OllamaProvider struct {
	host       string
	model      string
	httpClient *http.Client
	cache      *Cache
}

// NewOllamaProvider creates a new Ollama generator
func NewOllamaProvider(host string, cache *Cache) (*OllamaProvider, error) {
	if host == "" {
		host = os.Getenv(EnvOllamaHost)
	}
	if host == "" {
		host = defaultOllamaHost
	}

	return &OllamaProvider{
		host:  strings.TrimRight(host, "/"),
		model: DefaultOllamaModel,
		httpClient: &http.Client{
			// Local models on CPU can be slow
			Timeout: 300 * time.Second,
		},
		cache: cache,
	}, nil
}

func (ol *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (*types.QAPair, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.ChunkText)
	if ol.cache != nil {
		if pair, ok := ol.cache.Get(hash); ok {
			return pair, nil
		}
	}

	model := req.Model
	if model == "" {
		model = ol.model
	}

	config := DefaultRetryConfig()
	pair, err := retryWithBackoff(ctx, config, func() (*types.QAPair, error) {
		return ol.callAPI(ctx, req.ChunkText, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, MaxRetries, err)
	}

	if ol.cache != nil {
		ol.cache.Set(hash, pair)
	}
	return pair, nil
}

func (ol *OllamaProvider) callAPI(ctx context.Context, chunkText, model string) (*types.QAPair, error) {
	reqBody := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": SystemPrompt},
			{"role": "user", "content": BuildPrompt(chunkText)},
		},
		"format": "json",
		"stream": false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", ol.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ol.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return parsePair(apiResp.Message.Content)
}

func (ol *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (ol *OllamaProvider) Model() string {
	return ol.model
}

func (ol *OllamaProvider) Close() error {
	ol.httpClient.CloseIdleConnections()
	return nil
}

// TemplateProvider implements Generator without any remote call: it
// derives a deterministic summarization-style pair from the chunk
// itself. Useful for offline runs and tests.
type TemplateProvider struct {
	cache *Cache
}

// NewTemplateProvider creates a new offline template generator
func NewTemplateProvider(cache *Cache) (*TemplateProvider, error) {
	return &TemplateProvider{cache: cache}, nil
}

func (t *TemplateProvider) Generate(ctx context.Context, req GenerateRequest) (*types.QAPair, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.ChunkText)
	if t.cache != nil {
		if pair, ok := t.cache.Get(hash); ok {
			return pair, nil
		}
	}

	// First sentence-ish fragment anchors the question.
	excerpt := req.ChunkText
	if idx := strings.IndexAny(excerpt, ".!?\n"); idx > 0 {
		excerpt = excerpt[:idx]
	}
	if len(excerpt) > 120 {
		excerpt = excerpt[:120]
	}

	pair := &types.QAPair{
		Instruction: fmt.Sprintf("What does the following technical excerpt describe: %q?", strings.TrimSpace(excerpt)),
		Response:    req.ChunkText,
	}

	if t.cache != nil {
		t.cache.Set(hash, pair)
	}
	return pair, nil
}

func (t *TemplateProvider) Provider() string {
	return ProviderTemplate
}

func (t *TemplateProvider) Model() string {
	return "template-v1"
}

func (t *TemplateProvider) Close() error {
	return nil
}

// parsePair decodes and validates a provider's JSON reply.
func parsePair(content string) (*types.QAPair, error) {
	var pair types.QAPair
	if err := json.Unmarshal([]byte(content), &pair); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := pair.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &pair, nil
}
