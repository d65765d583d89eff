package security

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomToken returns bytesLen bytes of cryptographic randomness in URL-safe
// base64, used for session ids and CSRF tokens.
func RandomToken(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
