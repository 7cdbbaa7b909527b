package sanitizer

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New()
	require.NotNil(t, s)
	assert.Equal(t, 4, s.Registry().Len())
}

func TestClean_EmptyInput(t *testing.T) {
	s := New()

	assert.Equal(t, "", s.Clean(""))
	assert.Equal(t, "", s.Clean("   \t\n  "))
}

func TestClean_IPv4(t *testing.T) {
	s := New()

	tests := []struct {
		name  string
		input string
	}{
		{"private address", "Host 192.168.0.55 failed to connect."},
		{"loopback", "dial tcp 127.0.0.1:8080 refused"},
		{"out of range octets", "saw 999.999.999.999 in the capture"}, // syntax only, no range check
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Clean(tt.input)
			assert.Contains(t, got, "[REDACTED_IP]")
			assert.NotRegexp(t, `\d+\.\d+\.\d+\.\d+`, got)
		})
	}
}

func TestClean_Email(t *testing.T) {
	s := New()

	got := s.Clean("User admin@company.com attempted login.")
	assert.NotContains(t, got, "admin@company.com")
	assert.Contains(t, got, "[REDACTED_EMAIL]")

	// subdomains and plus addressing
	got = s.Clean("contact ops+oncall@mail.internal.example.org now")
	assert.NotContains(t, got, "ops+oncall@mail.internal.example.org")
	assert.Contains(t, got, "[REDACTED_EMAIL]")
}

func TestClean_SecretKey(t *testing.T) {
	s := New()

	tests := []struct {
		name  string
		input string
		leak  string
	}{
		{"api_key equals", "login with api_key=sk-abC12345678901234567890abcdef done", "sk-abC12345678901234567890abcdef"},
		{"access-token colon", "access-token: ghp_AAAABBBBCCCCDDDDEEEE set", "ghp_AAAABBBBCCCCDDDDEEEE"},
		{"password spaced", "password = Sup3rSecretValue12345", "Sup3rSecretValue12345"},
		{"uppercase keyword", "API_KEY=ABCDEFGHIJKLMNOP1234", "ABCDEFGHIJKLMNOP1234"},
		{"auth keyword", "auth: zzzzzzzzzzzzzzzzzzzz", "zzzzzzzzzzzzzzzzzzzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Clean(tt.input)
			assert.NotContains(t, got, tt.leak)
			assert.Contains(t, got, "[REDACTED_SECRET]")
		})
	}
}

func TestClean_SecretKey_ShortTokenNotMatched(t *testing.T) {
	s := New()

	// Token below the 16-character floor is left alone.
	input := "password=hunter2 is weak"
	assert.Equal(t, input, s.Clean(input))
}

func TestClean_MACAddress(t *testing.T) {
	s := New()

	tests := []struct {
		name  string
		input string
		leak  string
	}{
		{"colon separated", "MAC: 00:1B:44:11:3A:B7.", "00:1B:44:11:3A:B7"},
		{"hyphen separated", "device 00-1a-2b-3c-4d-5e online", "00-1a-2b-3c-4d-5e"},
		{"lowercase hex", "ab:cd:ef:01:23:45 registered", "ab:cd:ef:01:23:45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Clean(tt.input)
			assert.NotContains(t, got, tt.leak)
			assert.Contains(t, got, "[REDACTED_MAC]")
		})
	}
}

func TestClean_MixedLogLine(t *testing.T) {
	s := New()

	input := "Login failed for admin@corp.local from 10.0.0.5 using api_key=AAAAAAAAAAAAAAAAAAAA"
	want := "Login failed for [REDACTED_EMAIL] from [REDACTED_IP] using [REDACTED_SECRET]"
	assert.Equal(t, want, s.Clean(input))
}

func TestClean_NoSensitiveData(t *testing.T) {
	s := New()

	input := "Service restarted cleanly after 42ms with 3 retries."
	assert.Equal(t, input, s.Clean(input))
}

func TestClean_BinaryGarbage(t *testing.T) {
	s := New()

	// Control characters and invalid UTF-8 must pass through without panic.
	input := "prefix \x00\x01\xff\xfe suffix 10.0.0.1 end"
	got := s.Clean(input)
	assert.NotContains(t, got, "10.0.0.1")
	assert.Contains(t, got, "prefix")
}

func TestClean_NonASCII(t *testing.T) {
	s := New()

	input := "ユーザー admin@例え.jp がログイン" // ASCII-class matchers do not fire on the kanji domain
	got := s.Clean(input)
	assert.Contains(t, got, "ユーザー")
}

func TestClean_Idempotent(t *testing.T) {
	s := New()

	inputs := []string{
		"Login failed for admin@corp.local from 10.0.0.5 using api_key=AAAAAAAAAAAAAAAAAAAA",
		"MAC 00:1B:44:11:3A:B7 and MAC 00-1a-2b-3c-4d-5e",
		"nothing sensitive here",
		"secret=abcdefghijklmnopqrstuvwxyz0123456789",
		"",
	}

	for _, input := range inputs {
		once := s.Clean(input)
		twice := s.Clean(once)
		assert.Equal(t, once, twice, "Clean must be idempotent for %q", input)
	}
}

func TestClean_PlaceholdersNeverRematch(t *testing.T) {
	// The core idempotence invariant: no placeholder may itself match any
	// registered pattern, or a second pass would mangle already-clean text.
	reg := DefaultRegistry()

	for _, p := range reg.Patterns() {
		for _, q := range reg.Patterns() {
			assert.False(t, q.Regex.MatchString(p.Placeholder),
				"placeholder %s must not match pattern %s", p.Placeholder, q.Category)
		}
	}
}

func TestClean_MultipleOccurrences(t *testing.T) {
	s := New()

	input := "hop 10.0.0.1 then 10.0.0.2 then 10.0.0.3"
	got := s.Clean(input)
	assert.Equal(t, 3, strings.Count(got, "[REDACTED_IP]"))
	assert.NotContains(t, got, "10.0.0")
}

func TestClean_CustomRegistry(t *testing.T) {
	reg := NewRegistry([]Pattern{
		{
			Category:    Category("hostname"),
			Regex:       regexp.MustCompile(`\bnode-\d+\b`),
			Placeholder: "[REDACTED_HOST]",
		},
	})
	s := NewWithRegistry(reg)

	got := s.Clean("node-17 rebooted, email admin@corp.local untouched")
	assert.Contains(t, got, "[REDACTED_HOST]")
	assert.Contains(t, got, "admin@corp.local") // custom registry has no email rule
}

func TestRegistry_PatternsReturnsCopy(t *testing.T) {
	reg := DefaultRegistry()
	patterns := reg.Patterns()
	patterns[0].Placeholder = "mutated"

	assert.Equal(t, "[REDACTED_IP]", reg.Patterns()[0].Placeholder)
}
