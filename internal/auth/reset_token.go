package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
)

// ResetTokenLifetime bounds how long an issued reset token can be redeemed
const ResetTokenLifetime = 3 * 24 * time.Hour

const (
	tokenSeparator = ":"
	outerSegments  = 3 // username, expiry, inner
	innerSegments  = 4 // username, temporary password, expiry, seal
	sealLen        = 16
)

var tokenEncoding = base64.StdEncoding.Strict()

// ResetTokenCodec issues and redeems self-contained password reset tokens.
//
// The inner layer (username:password:expiry:seal) is XORed with a per-account
// salt and wrapped by an outer layer (username:expiry:inner) that must agree
// with it. Only the salt is kept server side.
type ResetTokenCodec struct {
	lifetime time.Duration
	now      func() time.Time
}

// NewResetTokenCodec creates a codec using ResetTokenLifetime and the wall clock
func NewResetTokenCodec() *ResetTokenCodec {
	return &ResetTokenCodec{
		lifetime: ResetTokenLifetime,
		now:      time.Now,
	}
}

// WithClock returns a copy of the codec reading time from now
func (c *ResetTokenCodec) WithClock(now func() time.Time) *ResetTokenCodec {
	return &ResetTokenCodec{lifetime: c.lifetime, now: now}
}

// Lifetime returns how long issued tokens stay valid
func (c *ResetTokenCodec) Lifetime() time.Duration {
	return c.lifetime
}

// Issue builds a token binding username and tempPassword to salt
func (c *ResetTokenCodec) Issue(username, tempPassword string, salt []byte) (string, error) {
	if username == "" || tempPassword == "" {
		return "", fmt.Errorf("username and temporary password are required")
	}
	if strings.Contains(username, tokenSeparator) || strings.Contains(tempPassword, tokenSeparator) {
		return "", fmt.Errorf("token fields must not contain %q", tokenSeparator)
	}
	if len(salt) == 0 {
		return "", fmt.Errorf("reset salt is required")
	}

	expiry := strconv.FormatInt(c.now().Add(c.lifetime).UnixMilli(), 10)

	inner := strings.Join([]string{
		username,
		tempPassword,
		expiry,
		seal(salt, username, tempPassword, expiry),
	}, tokenSeparator)
	innerEncoded := tokenEncoding.EncodeToString(xorWithSalt([]byte(inner), salt))

	outer := strings.Join([]string{username, expiry, innerEncoded}, tokenSeparator)
	return tokenEncoding.EncodeToString([]byte(outer)), nil
}

// Redeem validates token against salt and returns the embedded username and
// temporary password. Every failure is reported as models.ErrInvalidToken.
func (c *ResetTokenCodec) Redeem(token string, salt []byte) (username, tempPassword string, err error) {
	username, tempPassword, ok := c.redeem(token, salt)
	if !ok {
		return "", "", models.ErrInvalidToken
	}
	return username, tempPassword, nil
}

func (c *ResetTokenCodec) redeem(token string, salt []byte) (string, string, bool) {
	if len(salt) == 0 {
		return "", "", false
	}

	outerRaw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return "", "", false
	}
	outer := strings.Split(string(outerRaw), tokenSeparator)
	if len(outer) != outerSegments {
		return "", "", false
	}

	innerRaw, err := tokenEncoding.DecodeString(outer[2])
	if err != nil {
		return "", "", false
	}
	inner := strings.Split(string(xorWithSalt(innerRaw, salt)), tokenSeparator)
	if len(inner) != innerSegments {
		return "", "", false
	}

	username, tempPassword, expiry, innerSeal := inner[0], inner[1], inner[2], inner[3]

	// Both layers must agree, so an outer wrapper cannot be spliced onto another payload
	if username == "" || username != outer[0] || expiry != outer[1] {
		return "", "", false
	}
	if !hmac.Equal([]byte(innerSeal), []byte(seal(salt, username, tempPassword, expiry))) {
		return "", "", false
	}

	expiresAt, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return "", "", false
	}
	if c.now().UnixMilli() > expiresAt {
		return "", "", false
	}

	return username, tempPassword, true
}

// ExpiryOf returns the expiry embedded in the outer layer without validating
// the token. It is meant for presenting expiry to the token holder.
func ExpiryOf(token string) (time.Time, bool) {
	outerRaw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, false
	}
	outer := strings.Split(string(outerRaw), tokenSeparator)
	if len(outer) != outerSegments {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(outer[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

func seal(salt []byte, username, tempPassword, expiry string) string {
	mac := hmac.New(sha256.New, salt)
	mac.Write([]byte(username + tokenSeparator + tempPassword + tokenSeparator + expiry))
	return hex.EncodeToString(mac.Sum(nil)[:sealLen])
}

// xorWithSalt XORs data with salt, repeating salt as needed
func xorWithSalt(data, salt []byte) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ salt[i%len(salt)]
	}
	return out
}
