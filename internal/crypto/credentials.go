package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// NewAPIKey generates a prefix-tagged opaque API key.
func NewAPIKey() (string, error) {
	return randomToken("sk_live_")
}

// NewHMACSecret generates a webhook signing secret with at least 256 bits
// of entropy. It is returned to the client exactly once, at registration.
func NewHMACSecret() (string, error) {
	return randomToken("whsec_")
}

// NewAppID generates the public client identifier.
func NewAppID() string {
	return uuid.NewString()
}

// NewJobID generates a job identifier.
func NewJobID() string {
	return uuid.NewString()
}

func randomToken(prefix string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
