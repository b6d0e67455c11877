package auth

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

// Layout of a legacy hash: marker byte, salt, subkey
const (
	legacyFormatMarker = 0x00
	legacySaltLen      = 16
	legacySubkeyLen    = 32
	legacyIterations   = 1000
	legacyHashLen      = 1 + legacySaltLen + legacySubkeyLen
)

// ErrLegacyHashFormat means the stored legacy hash does not have the expected layout
var ErrLegacyHashFormat = errors.New("legacy password hash has an unsupported format")

// LegacyVerifier checks PBKDF2-HMAC-SHA1 hashes of migrated accounts.
// It never produces hashes.
type LegacyVerifier struct{}

// Validate reports whether password matches the base64 encoded legacy hash
func (LegacyVerifier) Validate(password, legacyHash string) (bool, error) {
	raw, err := base64.StdEncoding.DecodeString(legacyHash)
	if err != nil || len(raw) != legacyHashLen || raw[0] != legacyFormatMarker {
		return false, ErrLegacyHashFormat
	}

	salt := raw[1 : 1+legacySaltLen]
	expected := raw[1+legacySaltLen:]

	actual := pbkdf2.Key([]byte(password), salt, legacyIterations, legacySubkeyLen, sha1.New)
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}
