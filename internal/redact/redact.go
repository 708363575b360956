// Package redact provides utilities to strip sensitive values from strings
// before they appear in output, logs, or error messages.
package redact

import (
	"strings"
	"sync"
)

var (
	mu           sync.Mutex
	knownSecrets []string
)

// ResetForTest clears the registered secrets so tests can verify redaction
// behavior starting from a clean slate.
func ResetForTest() {
	mu.Lock()
	knownSecrets = nil
	mu.Unlock()
}

// AddKnownSecrets registers literal values (typically secrets just loaded
// from a scan artifact by 'gitsecret clean') that must never appear
// unredacted in CLI output or error text. Values shorter than 4 bytes are
// ignored to avoid redacting incidental short substrings.
func AddKnownSecrets(values []string) {
	mu.Lock()
	defer mu.Unlock()
	for _, v := range values {
		if len(v) >= 4 {
			knownSecrets = append(knownSecrets, v)
		}
	}
}

// String replaces any occurrence of a value registered via AddKnownSecrets
// with "[REDACTED]". Returns the original string if no secrets are
// registered or none are found.
func String(s string) string {
	mu.Lock()
	secrets := knownSecrets
	mu.Unlock()
	for _, secret := range secrets {
		s = strings.ReplaceAll(s, secret, "[REDACTED]")
	}
	return s
}
