package sanitizer

import "regexp"

// Category tags a class of sensitive data a pattern detects.
type Category string

const (
	CategoryIPv4       Category = "ipv4"
	CategoryEmail      Category = "email"
	CategorySecretKey  Category = "secret_key"
	CategoryMACAddress Category = "mac_address"
)

// Pattern is one entry of the detection rule table: a category, the
// expression recognizing it, and the literal that replaces every match.
type Pattern struct {
	Category    Category
	Regex       *regexp.Regexp
	Placeholder string
}

// Registry is an ordered, immutable collection of detection patterns.
// Construction is configuration-driven; adding a category means building
// a new registry, never mutating a live one. A registry may be shared by
// reference across goroutines.
type Registry struct {
	patterns []Pattern
}

// NewRegistry creates a registry from an explicit ordered rule table.
// The slice is copied so later mutation of the argument has no effect.
func NewRegistry(patterns []Pattern) *Registry {
	table := make([]Pattern, len(patterns))
	copy(table, patterns)
	return &Registry{patterns: table}
}

// DefaultRegistry returns the standard four-category rule table used for
// raw technical text (logs, documentation) before it enters the training
// pipeline.
func DefaultRegistry() *Registry {
	return NewRegistry([]Pattern{
		{
			// Dot-decimal four-octet sequences. Syntax only - no range check,
			// so 999.999.999.999 is redacted too.
			Category:    CategoryIPv4,
			Regex:       regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
			Placeholder: "[REDACTED_IP]",
		},
		{
			// local-part @ domain with a >=2 letter top-level label
			Category:    CategoryEmail,
			Regex:       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			Placeholder: "[REDACTED_EMAIL]",
		},
		{
			// Credential keyword, assignment separator, then a long token.
			// Heuristic: catches "api_key=...", "token: ...", "secret : ...".
			Category:    CategorySecretKey,
			Regex:       regexp.MustCompile(`(?i)\b(?:api[_-]?key|access[_-]?token|secret|password|auth)\s*[:=]\s*[A-Za-z0-9_\-]{16,}\b`),
			Placeholder: "[REDACTED_SECRET]",
		},
		{
			// Six colon- or hyphen-separated hex pairs
			Category:    CategoryMACAddress,
			Regex:       regexp.MustCompile(`(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}`),
			Placeholder: "[REDACTED_MAC]",
		},
	})
}

// Patterns returns a copy of the ordered rule table.
// A copy is returned to prevent callers from mutating the registry.
func (r *Registry) Patterns() []Pattern {
	out := make([]Pattern, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// Len returns the number of registered patterns.
func (r *Registry) Len() int {
	return len(r.patterns)
}
