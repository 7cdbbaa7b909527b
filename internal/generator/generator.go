package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/dataprep-mcp/pkg/types"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("generation provider failed")
	ErrUnsupportedModel  = errors.New("unsupported provider")
	ErrEmptyChunk        = errors.New("chunk text cannot be empty")
	ErrChunkTooShort     = errors.New("chunk below minimum generation length")
	ErrMalformedResponse = errors.New("provider returned malformed pair")
	ErrNoProviderEnabled = errors.New("no generation provider configured")
)

// MinChunkLength is the character floor below which a chunk is considered
// noise and skipped rather than sent to a provider.
const MinChunkLength = 100

// GenerateRequest represents a request to produce one training pair from
// a sanitized chunk.
type GenerateRequest struct {
	ChunkText string
	Model     string // Optional: override default model
}

// Generator turns sanitized text chunks into instruction/response
// training pairs.
type Generator interface {
	// Generate produces one QA pair for the given chunk
	Generate(ctx context.Context, req GenerateRequest) (*types.QAPair, error)

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the generator
	Close() error
}

// Cache provides in-memory LRU caching of generated pairs by chunk hash,
// so re-running generation over an unchanged dataset costs nothing per
// already-seen chunk.
type Cache struct {
	cache *lru.Cache[string, *types.QAPair]
}

// NewCache creates a new pair cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000 // Default: cache 10k pairs
	}
	cache, err := lru.New[string, *types.QAPair](maxLen)
	if err != nil {
		// Should never happen with positive size, but fallback to default
		cache, _ = lru.New[string, *types.QAPair](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached pair
// Returns a copy to prevent caller mutations from affecting cached values
func (c *Cache) Get(hash string) (*types.QAPair, bool) {
	pair, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := *pair
	return &out, true
}

// Set stores a pair in cache with automatic LRU eviction
func (c *Cache) Set(hash string, pair *types.QAPair) {
	c.cache.Add(hash, pair)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// ComputeHash computes SHA-256 hash of chunk text for caching
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// ValidateRequest validates a generation request
func ValidateRequest(req GenerateRequest) error {
	if req.ChunkText == "" {
		return ErrEmptyChunk
	}
	if len(req.ChunkText) < MinChunkLength {
		return ErrChunkTooShort
	}
	return nil
}
