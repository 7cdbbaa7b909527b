package sanitizer

import "strings"

// Sanitizer strips sensitive data from raw text by applying an ordered
// registry of detection patterns. It holds no per-call state and is safe
// for concurrent use.
type Sanitizer struct {
	registry *Registry
}

// New creates a Sanitizer with the default four-category registry.
func New() *Sanitizer {
	return NewWithRegistry(DefaultRegistry())
}

// NewWithRegistry creates a Sanitizer using an explicit registry.
func NewWithRegistry(registry *Registry) *Sanitizer {
	return &Sanitizer{registry: registry}
}

// Registry returns the registry the sanitizer was built with.
func (s *Sanitizer) Registry() *Registry {
	return s.registry
}

// Clean replaces every match of every registered pattern with the
// pattern's placeholder and returns the result.
//
// Patterns are applied sequentially in registration order: pattern N runs
// over the output of pattern N-1, not the original text. Behavior on
// adversarial inputs where one category's match overlaps another's (for
// example a MAC-shaped substring inside a flagged secret token) is
// undefined beyond the guarantee that the matched span is replaced.
//
// Clean is total: any input, including control characters and binary
// garbage, is processed to completion. Text that matches nothing passes
// through unchanged. Empty or whitespace-only input returns "".
func (s *Sanitizer) Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	cleaned := text
	for _, p := range s.registry.patterns {
		cleaned = p.Regex.ReplaceAllString(cleaned, p.Placeholder)
	}
	return cleaned
}
