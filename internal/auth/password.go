package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	hashAlgo       = "pbkdf2_sha256"
	hashIterations = 200_000
	hashKeyLen     = 32
	hashSaltLen    = 16
)

// HashPassword returns a compact string carrying the algorithm, iteration
// count, salt and derived key: pbkdf2_sha256$iter$salt$key. The format is
// shared with pre-existing user files, so it must not change.
func HashPassword(password string) (string, error) {
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	dk := pbkdf2.Key([]byte(password), salt, hashIterations, hashKeyLen, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		hashAlgo,
		hashIterations,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(dk),
	), nil
}

// VerifyPassword checks password against a stored compact hash. Any parse
// problem counts as a mismatch.
func VerifyPassword(password, stored string) bool {
	parts := strings.SplitN(stored, "$", 4)
	if len(parts) != 4 || parts[0] != hashAlgo {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(expected) == 0 {
		return false
	}
	dk := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	return hmac.Equal(dk, expected)
}
