package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/dataprep-mcp/pkg/types"
)

const (
	// DefaultWindowSize is the number of words per window
	DefaultWindowSize = 500

	// DefaultOverlap is the number of words shared between consecutive
	// windows so context survives a window boundary
	DefaultOverlap = 50

	// DefaultMinChunkChars is the character floor below which a window is
	// discarded as an end-of-file artifact
	DefaultMinChunkChars = 50
)

// Config contains the windowing parameters for a Chunker
type Config struct {
	WindowSize    int // words per window (> Overlap)
	Overlap       int // words shared between consecutive windows (>= 0)
	MinChunkChars int // windows at or below this many characters are dropped (>= 0)
}

// DefaultConfig returns the standard 500/50/50 windowing parameters.
func DefaultConfig() Config {
	return Config{
		WindowSize:    DefaultWindowSize,
		Overlap:       DefaultOverlap,
		MinChunkChars: DefaultMinChunkChars,
	}
}

// Chunker splits text into overlapping fixed-size word windows.
// Configuration is validated once at construction; Split never fails on
// input content. A Chunker is stateless per call and safe for concurrent
// use.
type Chunker struct {
	cfg    Config
	stride int
}

// New creates a Chunker, validating the configuration eagerly so an
// invalid stride can never surface mid-stream.
func New(cfg Config) (*Chunker, error) {
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("%w: window size must be positive, got %d",
			types.ErrInvalidChunkConfig, cfg.WindowSize)
	}
	if cfg.Overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d",
			types.ErrInvalidChunkConfig, cfg.Overlap)
	}
	if cfg.MinChunkChars < 0 {
		return nil, fmt.Errorf("%w: min chunk chars must not be negative, got %d",
			types.ErrInvalidChunkConfig, cfg.MinChunkChars)
	}
	if cfg.Overlap >= cfg.WindowSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than window size %d",
			types.ErrInvalidChunkConfig, cfg.Overlap, cfg.WindowSize)
	}

	return &Chunker{
		cfg:    cfg,
		stride: cfg.WindowSize - cfg.Overlap,
	}, nil
}

// Config returns the chunker's windowing parameters.
func (c *Chunker) Config() Config {
	return c.cfg
}

// Split partitions text into overlapping word windows.
//
// The text is tokenized on whitespace; windows start at token offsets
// 0, stride, 2*stride, ... and span up to WindowSize tokens each, rejoined
// with single spaces. The final window is kept even when short, but any
// window whose rejoined length in characters is not greater than
// MinChunkChars is dropped. Lengths count runes, not bytes, so multibyte
// text is measured the same as ASCII. Output is fully determined by the
// input and the configuration.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+c.stride-1)/c.stride)
	for offset := 0; offset < len(words); offset += c.stride {
		end := offset + c.cfg.WindowSize
		if end > len(words) {
			end = len(words)
		}

		chunk := strings.Join(words[offset:end], " ")
		if utf8.RuneCountInString(chunk) > c.cfg.MinChunkChars {
			chunks = append(chunks, chunk)
		}
	}

	return chunks
}

// SplitChunks produces the same windows as Split wrapped as typed chunks
// carrying their source, ordinal, start-token offset, and content hash.
func (c *Chunker) SplitChunks(source, text string) []*types.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]*types.Chunk, 0, (len(words)+c.stride-1)/c.stride)
	for offset := 0; offset < len(words); offset += c.stride {
		end := offset + c.cfg.WindowSize
		if end > len(words) {
			end = len(words)
		}

		text := strings.Join(words[offset:end], " ")
		charCount := utf8.RuneCountInString(text)
		if charCount <= c.cfg.MinChunkChars {
			continue
		}

		chunk := &types.Chunk{
			Source:     source,
			Seq:        len(chunks),
			Text:       text,
			CharCount:  charCount,
			StartToken: offset,
		}
		chunk.ComputeContentHash()
		chunks = append(chunks, chunk)
	}

	return chunks
}

// MaxWindows returns the upper bound on the number of windows Split can
// produce for an input of tokenCount words: ceil(tokenCount / stride).
func (c *Chunker) MaxWindows(tokenCount int) int {
	if tokenCount <= 0 {
		return 0
	}
	return (tokenCount + c.stride - 1) / c.stride
}
