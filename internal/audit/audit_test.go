package audit

import (
	"testing"
)

// Audit metadata must never leak credential material into the log stream,
// so any key that smells like a secret is redacted before emission.
func TestAudit_IsSecret(t *testing.T) {
	tests := []struct {
		key      string
		isSecret bool
	}{
		{"password", true},
		{"Password", true},
		{"PASSWORD", true},
		{"token", true},
		{"access_token", true},
		{"secret", true},
		{"api_key", true},
		{"hash", true},
		{"password_hash", true},
		{"credential", true},
		{"private_key", true},
		{"account_id", false},
		{"username", false},
		{"email", false},
		{"role", false},
		{"enabled", false},
		{"created", false},
		// Seed events flag whether the bootstrap credential was rotated;
		// that boolean must survive redaction.
		{"rotated", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := isSecret(tt.key); got != tt.isSecret {
				t.Errorf("isSecret(%q) = %v, want %v", tt.key, got, tt.isSecret)
			}
		})
	}
}
