package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost      = 12
	SecretKeyLength = 32 // 256 bits
	MinAdminKeyLen  = 24
)

// HashAdminKey bcrypt-hashes an admin API key for ADMIN_API_KEY_HASH
func HashAdminKey(key string) (string, error) {
	if len(key) < MinAdminKeyLen {
		return "", fmt.Errorf("admin key must be at least %d characters", MinAdminKeyLen)
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(key), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash admin key: %w", err)
	}
	return string(hashedBytes), nil
}

// CompareAdminKey returns nil when key matches the bcrypt hash
func CompareAdminKey(hashedKey, key string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedKey), []byte(key))
}

// GenerateSecret returns SecretKeyLength random bytes, base64 encoded
func GenerateSecret() (string, error) {
	bytes := make([]byte, SecretKeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
