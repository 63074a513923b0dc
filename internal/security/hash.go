package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a SHA-256 hash (32 bytes)
type Hash [32]byte

// CalculateDataHash computes the SHA-256 hash of byte data
func CalculateDataHash(data []byte) *Hash {
	hashArray := sha256.Sum256(data)
	hash := Hash(hashArray)
	return &hash
}

// HashText returns the hex SHA-256 digest of a string
func HashText(text string) string {
	return CalculateDataHash([]byte(text)).String()
}

// CacheKey hashes lower-cased, trimmed text. Both in-memory caches key their entries this way.
func CacheKey(text string) string {
	return HashText(strings.ToLower(strings.TrimSpace(text)))
}

// String returns the hash as a hex string
func (h *Hash) String() string {
	return hex.EncodeToString(h[:])
}

// FromHexString creates a Hash from a hex string
func FromHexString(s string) (*Hash, error) {
	bytes, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}

	if len(bytes) != 32 {
		return nil, fmt.Errorf("invalid hash length: expected 32 bytes, got %d", len(bytes))
	}

	var hash Hash
	copy(hash[:], bytes)
	return &hash, nil
}
