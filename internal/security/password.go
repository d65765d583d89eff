package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	hashVersion       = "v1"
	hashRounds        = 180000
	minVerifyRounds   = 100000
	minPasswordLength = 12
	saltLength        = 16
)

// HashPassword returns a salted iterated-SHA256 encoding of password in the
// form v1$rounds$salt$digest.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	digest := stretchDigest(password, salt, hashRounds)
	return strings.Join([]string{
		hashVersion,
		strconv.Itoa(hashRounds),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	}, "$"), nil
}

// VerifyPassword reports whether password matches an encoding produced by
// HashPassword. Malformed or downgraded encodings never match.
func VerifyPassword(password, encoded string) bool {
	rounds, salt, want, ok := parseEncodedHash(encoded)
	if !ok {
		return false
	}
	got := stretchDigest(password, salt, rounds)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func parseEncodedHash(encoded string) (rounds int, salt, digest []byte, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != hashVersion {
		return 0, nil, nil, false
	}
	rounds, err := strconv.Atoi(parts[1])
	if err != nil || rounds < minVerifyRounds {
		return 0, nil, nil, false
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return 0, nil, nil, false
	}
	digest, err = base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(digest) != sha256.Size {
		return 0, nil, nil, false
	}
	return rounds, salt, digest, true
}

func stretchDigest(password string, salt []byte, rounds int) []byte {
	sum := sha256.Sum256(append(salt, password...))
	for i := 1; i < rounds; i++ {
		sum = sha256.Sum256(append(sum[:], salt...))
	}
	out := make([]byte, sha256.Size)
	copy(out, sum[:])
	return out
}
