package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	MaxPasswordLen    = 128
)

// ErrCorruptHash is returned when a stored hash cannot be parsed at all
var ErrCorruptHash = errors.New("stored password hash is unparseable")

// PasswordHasher hashes passwords with bcrypt after mixing in a server-side pepper
type PasswordHasher struct {
	pepper []byte
	cost   int
}

// NewPasswordHasher creates a hasher with the given pepper and preferred cost
func NewPasswordHasher(pepper string, cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &PasswordHasher{
		pepper: []byte(pepper),
		cost:   cost,
	}, nil
}

// Cost returns the preferred work factor
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// peppered keys an HMAC with the pepper. The encoded digest is 44 bytes,
// which keeps bcrypt below its 72 byte input limit for any password length.
func (h *PasswordHasher) peppered(password string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	sum := mac.Sum(nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum)
	return out
}

// Hash returns a self-describing bcrypt string ($2a$<cost>$<salt+digest>)
func (h *PasswordHasher) Hash(password string) (string, error) {
	return h.hashWithCost(password, h.cost)
}

func (h *PasswordHasher) hashWithCost(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword(h.peppered(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify reports whether password matches hash. Mismatches and malformed
// hashes yield false; ErrCorruptHash is returned only when the hash cannot be
// parsed at all.
func (h *PasswordHasher) Verify(hash, password string) (bool, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return false, fmt.Errorf("%w: %v", ErrCorruptHash, err)
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), h.peppered(password))
	return err == nil, nil
}

// Upgrade re-hashes password when hash was produced below the preferred cost.
// Otherwise hash is returned unchanged. Persisting the result is up to the caller.
func (h *PasswordHasher) Upgrade(hash, password string) (string, error) {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptHash, err)
	}
	if cost >= h.cost {
		return hash, nil
	}
	return h.Hash(password)
}

// HashCost extracts the work factor embedded in hash
func HashCost(hash string) (int, error) {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptHash, err)
	}
	return cost, nil
}
