// Package types defines the shared data structures for the dataset
// preparation pipeline.
//
// The central types are:
//   - Chunk: one sanitized text window produced for a source file
//   - Record: the {source, text} unit persisted to the JSONL dataset
//   - QAPair: an instruction/response training example generated from a chunk
//
// # The Record Contract
//
// Every surviving chunk becomes exactly one Record, serialized as one
// compact JSON object per line:
//
//	{"source":"router.log","text":"Login failed for [REDACTED_EMAIL] ..."}
//
// The encoding is stable: re-running the pipeline over unchanged input with
// the same configuration produces a byte-identical dataset file.
//
// # Validation
//
// Types validate themselves rather than relying on construction sites:
//
//	chunk.ComputeContentHash()
//	if err := chunk.Validate(); err != nil {
//	    log.Printf("invalid chunk: %v", err)
//	}
package types
