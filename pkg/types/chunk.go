package types

import (
	"crypto/sha256"
	"errors"
)

// Chunk is one window of sanitized text produced for a single source.
// Chunks are transient: they exist to carry a window from the chunker to
// the dataset writer and the tracking store, then become Records.
type Chunk struct {
	// Identification
	Source string // source file the window came from
	Seq    int    // window ordinal within the source (0-based)

	// Content
	Text        string
	ContentHash [32]byte // SHA-256 hash for change detection
	CharCount   int      // length of Text in runes

	// Location
	StartToken int // token offset of the first word in the window
}

// ValidateContent checks if the chunk content is valid
func (c *Chunk) ValidateContent() error {
	if c.Text == "" {
		return ErrEmptyContent
	}
	if c.Seq < 0 {
		return errors.New("chunk sequence must not be negative")
	}
	if c.StartToken < 0 {
		return errors.New("start token must not be negative")
	}
	return nil
}

// ComputeContentHash computes the SHA-256 hash of the chunk text
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.Text))
}

// EstimateTokens estimates the model-token count of the chunk text.
// Uses a simple heuristic: characters / 4.
func (c *Chunk) EstimateTokens() int {
	return len(c.Text) / 4
}

// Record converts the chunk to its persisted form.
func (c *Chunk) Record() Record {
	return Record{Source: c.Source, Text: c.Text}
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if err := c.ValidateContent(); err != nil {
		return err
	}
	if c.Source == "" {
		return ErrEmptySource
	}
	var zeroHash [32]byte
	if c.ContentHash == zeroHash {
		return errors.New("content hash must be computed")
	}
	return nil
}
