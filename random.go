package webauthn

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
)

// randomBytes returns n cryptographically secure random bytes.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return b, nil
}

// sha256Sum returns the SHA-256 digest of data.
func sha256Sum(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// sha384Sum returns the SHA-384 digest of data.
func sha384Sum(data []byte) []byte {
	h := sha512.Sum384(data)
	return h[:]
}

// sha512Sum returns the SHA-512 digest of data.
func sha512Sum(data []byte) []byte {
	h := sha512.Sum512(data)
	return h[:]
}
