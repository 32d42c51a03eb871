package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SessionTokenLength is the byte length of raw session tokens.
// 32 random bytes give 64 hex characters.
const SessionTokenLength = 32

// GenerateSessionToken generates a random opaque session token.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, SessionTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
