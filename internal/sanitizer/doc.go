// Package sanitizer removes sensitive data from raw text before it enters
// the dataset pipeline.
//
// Detection is strictly pattern-based: an ordered registry of
// (category, regex, placeholder) rules is applied to the full input, and
// every match is replaced with its category placeholder. There is no
// semantic entity recognition.
//
// # Basic Usage
//
//	s := sanitizer.New()
//	clean := s.Clean("User admin@corp.local from 10.0.0.5")
//	// "User [REDACTED_EMAIL] from [REDACTED_IP]"
//
// # Default Categories
//
//   - ipv4: dot-decimal four-octet sequences -> [REDACTED_IP]
//   - email: local@domain.tld addresses -> [REDACTED_EMAIL]
//   - secret_key: credential keyword + separator + 16+ char token -> [REDACTED_SECRET]
//   - mac_address: six hex pairs separated by : or - -> [REDACTED_MAC]
//
// # Guarantees
//
// For every substring of the input matching a registered pattern, no
// verbatim occurrence survives in the output. Placeholders are chosen so
// they never themselves match any registered pattern, which makes Clean
// idempotent: Clean(Clean(x)) == Clean(x).
//
// A custom rule table can be supplied with NewWithRegistry; registries are
// immutable after construction and safe to share across goroutines.
package sanitizer
