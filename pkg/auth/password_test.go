package auth

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const testPepper = "unit-test-pepper-value"

func newTestHasher(t *testing.T, cost int) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(testPepper, cost)
	require.NoError(t, err)
	return h
}

func TestNewPasswordHasher_RejectsCostOutOfRange(t *testing.T) {
	_, err := NewPasswordHasher(testPepper, bcrypt.MinCost-1)
	assert.Error(t, err)

	_, err = NewPasswordHasher(testPepper, bcrypt.MaxCost+1)
	assert.Error(t, err)
}

func TestHashAndVerifyPassword(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)

	passwords := []string{
		"correct horse",
		"SecureP@ss123",
		"ünïcødé-pässwörd",
		strings.Repeat("long", 40), // beyond bcrypt's 72 byte input limit
	}

	for _, password := range passwords {
		t.Run(password[:min(len(password), 16)], func(t *testing.T) {
			hash, err := h.Hash(password)
			require.NoError(t, err)
			assert.NotEqual(t, password, hash)
			assert.True(t, strings.HasPrefix(hash, "$2"))

			ok, err := h.Verify(hash, password)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Verify(hash, password+"x")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)

	_, err := h.Hash("")
	assert.Error(t, err)
}

func TestVerify_PepperIsApplied(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)
	other, err := NewPasswordHasher("another-pepper", bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)

	ok, err := other.Verify(hash, "correct horse")
	require.NoError(t, err)
	assert.False(t, ok, "hash must not verify under a different pepper")

	// A plain bcrypt of the password (no pepper) must not verify either
	plain, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	ok, err = h.Verify(string(plain), "correct horse")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_CorruptHash(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)

	for _, stored := range []string{"", "not-a-hash", "$2a$xx$abc"} {
		ok, err := h.Verify(stored, "whatever")
		assert.False(t, ok)
		assert.True(t, errors.Is(err, ErrCorruptHash), "stored=%q err=%v", stored, err)
	}
}

func TestUpgrade_BelowPreferredCost(t *testing.T) {
	low := newTestHasher(t, bcrypt.MinCost)
	high := newTestHasher(t, bcrypt.MinCost+1)

	hash, err := low.Hash("correct horse")
	require.NoError(t, err)

	upgraded, err := high.Upgrade(hash, "correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, upgraded)

	cost, err := HashCost(upgraded)
	require.NoError(t, err)
	assert.Equal(t, high.Cost(), cost)

	ok, err := high.Verify(upgraded, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpgrade_AtOrAbovePreferredCost(t *testing.T) {
	low := newTestHasher(t, bcrypt.MinCost)
	high := newTestHasher(t, bcrypt.MinCost+1)

	same, err := low.Hash("correct horse")
	require.NoError(t, err)
	result, err := low.Upgrade(same, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, same, result)

	stronger, err := high.Hash("correct horse")
	require.NoError(t, err)
	result, err = low.Upgrade(stronger, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, stronger, result)
}

func TestUpgrade_CorruptHash(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)

	_, err := h.Upgrade("garbage", "pw")
	assert.ErrorIs(t, err, ErrCorruptHash)
}

func legacyBlob(password string, salt []byte) string {
	subkey := pbkdf2.Key([]byte(password), salt, 1000, 32, sha1.New)
	raw := append([]byte{0x00}, salt...)
	raw = append(raw, subkey...)
	return base64.StdEncoding.EncodeToString(raw)
}

// Hashes exported from the previous identity backend
var legacyFixtures = []struct {
	password string
	stored   string
}{
	{"legacy-secret", "ADAxMjM0NTY3ODlhYmNkZWbGtiEN2EYlsovo2z3qTLrnAF5rTU7AaK1hwpM1jj9sGA=="},
	{"Passw0rd!", "AAABAgMEBQYHCAkKCwwNDg8mGGxJ6RXbpV3Eeve8lImVPiBvo46mNFMTIr+N+UuQ6w=="},
	{"æøå-unicode", "AKGyw9Tl9gcYKTpLXG1+j5B7VSnNn42JEFSAzy8OWmJ2FXhj8SklwvLvdylhwLbiRw=="},
}

func TestLegacyVerifier_Validate(t *testing.T) {
	var v LegacyVerifier

	for _, f := range legacyFixtures {
		t.Run(f.password, func(t *testing.T) {
			ok, err := v.Validate(f.password, f.stored)
			require.NoError(t, err)
			assert.True(t, ok)

			for _, wrong := range []string{"", strings.ToUpper(f.password), f.password + " ", "other"} {
				ok, err = v.Validate(wrong, f.stored)
				require.NoError(t, err)
				assert.False(t, ok, "password %q", wrong)
			}
		})
	}
}

func TestLegacyBlob_MatchesFixture(t *testing.T) {
	assert.Equal(t, legacyFixtures[0].stored, legacyBlob("legacy-secret", []byte("0123456789abcdef")))
}

func TestLegacyVerifier_RejectsBadFormat(t *testing.T) {
	salt := []byte("0123456789abcdef")
	good, err := base64.StdEncoding.DecodeString(legacyBlob("pw", salt))
	require.NoError(t, err)

	wrongMarker := append([]byte{}, good...)
	wrongMarker[0] = 0x01

	tests := []struct {
		name   string
		stored string
	}{
		{"not base64", "%%%"},
		{"too short", base64.StdEncoding.EncodeToString(good[:48])},
		{"too long", base64.StdEncoding.EncodeToString(append(good, 0x00))},
		{"wrong marker", base64.StdEncoding.EncodeToString(wrongMarker)},
	}

	var v LegacyVerifier
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := v.Validate("pw", tt.stored)
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrLegacyHashFormat)
		})
	}
}
