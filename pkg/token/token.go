package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// ByteLength is the entropy of a generated token in bytes (256 bits).
const ByteLength = 32

// Generate produces a cryptographically random, URL-safe opaque token.
// The raw value is handed to the caller exactly once and must never be
// persisted or logged; only its Fingerprint is stored.
func Generate() (string, error) {
	buf := make([]byte, ByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random source: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Fingerprint computes the one-way digest stored in place of the raw token.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether a raw token corresponds to a stored fingerprint
// using a constant-time comparison.
func Matches(raw, fingerprint string) bool {
	computed := Fingerprint(raw)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(fingerprint)) == 1
}
