// Package auth generates and verifies API keys. Tokens are random,
// bcrypt-hashed at rest, and looked up by a short plaintext prefix so
// verification only runs bcrypt against a handful of candidates.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// KeyIDPrefix marks API key identifiers
	KeyIDPrefix = "admem_key_"

	// TokenPrefix marks secret tokens
	TokenPrefix = "admem_sk_" // #nosec G101 // prefix pattern, not a credential

	// TokenPrefixLength is how many secret characters are stored in plain
	// text for lookup
	TokenPrefixLength = 8

	// KeyIDLength is the random part of key IDs in bytes before hex encoding
	KeyIDLength = 8

	// TokenLength is the random part of tokens in bytes before hex encoding
	TokenLength = 32

	bcryptCost = 12
)

// GenerateKeyID returns a new key identifier, admem_key_<16 hex chars>
func GenerateKeyID() (string, error) {
	bytes := make([]byte, KeyIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate key ID: %w", err)
	}
	return KeyIDPrefix + hex.EncodeToString(bytes), nil
}

// GenerateToken returns a fresh secret token and the plaintext prefix to
// store alongside its hash
func GenerateToken() (string, string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}

	hexToken := hex.EncodeToString(bytes)
	prefix := hexToken[:TokenPrefixLength]
	return TokenPrefix + hexToken, prefix, nil
}

// secretPart strips the display prefix; hashing and comparison always work
// on the raw secret
func secretPart(token string) []byte {
	return []byte(strings.TrimPrefix(token, TokenPrefix))
}

// HashToken bcrypt-hashes the secret part of a token for storage
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(secretPart(token), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken reports whether a presented token matches a stored hash
func VerifyToken(token, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), secretPart(token)) == nil
}

// ParsePrefix validates a presented token's shape and returns its lookup
// prefix. Malformed tokens are rejected here so storage never sees them.
func ParsePrefix(token string) (string, error) {
	secret, ok := strings.CutPrefix(token, TokenPrefix)
	if !ok {
		return "", fmt.Errorf("token missing %s prefix", TokenPrefix)
	}
	if len(secret) != TokenLength*2 {
		return "", fmt.Errorf("token secret has wrong length")
	}
	if _, err := hex.DecodeString(secret); err != nil {
		return "", fmt.Errorf("token secret is not hex encoded")
	}
	return secret[:TokenPrefixLength], nil
}

// MaskToken renders a token for display, admem_sk_a1b2c3d4****...****
func MaskToken(token string) string {
	if len(token) < len(TokenPrefix)+TokenPrefixLength {
		return "****"
	}
	return token[:len(TokenPrefix)+TokenPrefixLength] + "****...****"
}
