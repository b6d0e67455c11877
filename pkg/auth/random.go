package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	TemporaryPasswordLen = 16
	ResetSaltLen         = 32
)

const temporaryPasswordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateTemporaryPassword returns a random alphanumeric password from crypto/rand
func GenerateTemporaryPassword() (string, error) {
	limit := big.NewInt(int64(len(temporaryPasswordAlphabet)))
	out := make([]byte, TemporaryPasswordLen)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate temporary password: %w", err)
		}
		out[i] = temporaryPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}

// GenerateResetSalt returns fresh random bytes used to obfuscate a reset token
func GenerateResetSalt() ([]byte, error) {
	salt := make([]byte, ResetSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate reset salt: %w", err)
	}
	return salt, nil
}
