package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateState returns a random Base64URL token (32 bytes) for the OAuth state parameter
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
