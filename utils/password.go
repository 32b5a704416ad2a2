package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var ErrIncorrectPassword = errors.New("incorrect password")

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// HashPass returns "<salt>.<hash>", both base64, using argon2id.
func HashPass(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("create salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("%s.%s",
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash),
	), nil
}

// ComparePass checks password against a HashPass result. Malformed hashes
// never match.
func ComparePass(password, encoded string) error {
	saltB64, hashB64, ok := strings.Cut(encoded, ".")
	if !ok {
		return ErrIncorrectPassword
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return ErrIncorrectPassword
	}
	want, err := base64.StdEncoding.DecodeString(hashB64)
	if err != nil {
		return ErrIncorrectPassword
	}
	got := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return ErrIncorrectPassword
	}
	return nil
}
