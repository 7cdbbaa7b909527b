// Package generator produces instruction/response training pairs from
// sanitized text chunks.
//
// A Generator sends each chunk to a teacher model with a prompt that asks
// for one realistic question a junior engineer might raise about the text
// and the answer derived strictly from it, returned as strict JSON.
//
// Providers:
//   - openai: chat completions with response_format json_object
//   - ollama: local chat endpoint with format json
//   - template: deterministic offline pairs, no network (used in tests)
//
// Provider selection follows the environment:
//
//	gen, err := generator.NewFromEnv()
//	// DATAPREP_GENERATOR_PROVIDER, then OPENAI_API_KEY, then template
//
// Pairs are cached in-process by chunk content hash (LRU) so re-running
// generation over an unchanged dataset does not repeat API calls.
// Remote providers retry with exponential backoff before giving up with
// ErrProviderFailed.
package generator
