package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewID returns a URL-safe hex string ID. Used for request ids.
func NewID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewToken returns n random bytes hex encoded. Unlike NewID it reports entropy failures.
func NewToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
