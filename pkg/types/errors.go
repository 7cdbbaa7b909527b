package types

import "errors"

// Domain errors shared across the pipeline packages
var (
	// Chunker configuration errors
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// Record validation errors
	ErrEmptySource    = errors.New("record source cannot be empty")
	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrIncompletePair = errors.New("qa pair must have instruction and response")
)
