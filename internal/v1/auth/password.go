// Package auth issues and verifies access/refresh tokens and hashes
// passwords for the registration/login flow.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

// HashPassword derives a scrypt key from password with a fresh random salt
// and renders it as a PHC-style string: $scrypt$N=...,r=...,p=...$salt$hash,
// both components base64 (no padding) encoded.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	enc := base64.RawStdEncoding
	return fmt.Sprintf("$scrypt$N=%d,r=%d,p=%d$%s$%s",
		scryptN, scryptR, scryptP, enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches the PHC-style hash
// produced by HashPassword.
func VerifyPassword(password, phcHash string) bool {
	parts := strings.Split(phcHash, "$")
	if len(parts) != 5 || parts[1] != "scrypt" {
		return false
	}

	var n, r, p int
	if _, err := fmt.Sscanf(parts[2], "N=%d,r=%d,p=%d", &n, &r, &p); err != nil {
		return false
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[3])
	if err != nil {
		return false
	}
	want, err := enc.DecodeString(parts[4])
	if err != nil {
		return false
	}

	got, err := scrypt.Key([]byte(password), salt, n, r, p, len(want))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

// HashRefreshToken returns the hex-encoded SHA-256 digest persisted in
// place of the plaintext refresh token.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewRefreshToken generates a random 32-byte, URL-safe base64 (no padding)
// token.
func NewRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
