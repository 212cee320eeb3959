package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateAPIKey returns a random 32-character hex API key (16 random bytes).
func GenerateAPIKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
