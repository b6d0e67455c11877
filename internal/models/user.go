package models

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"
)

// User is the credential record of an identity. PasswordHash and LegacyHash
// are empty when absent (NULL in the store).
type User struct {
	UID          string
	Username     string
	FirstName    string
	LastName     string
	Email        string
	CellPhone    string
	PersonRef    string
	PasswordHash string // bcrypt string, or a reset placeholder while a reset is pending
	LegacyHash   string // base64 PBKDF2 blob for migrated accounts, read-only
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CredentialKind tags the authoritative credential of an account
type CredentialKind int

const (
	CredentialNone CredentialKind = iota
	CredentialModern
	CredentialLegacy
	CredentialResetPending
	CredentialCorrupt
)

func (k CredentialKind) String() string {
	switch k {
	case CredentialModern:
		return "modern"
	case CredentialLegacy:
		return "legacy"
	case CredentialResetPending:
		return "reset_pending"
	case CredentialCorrupt:
		return "corrupt"
	default:
		return "none"
	}
}

// ResetPlaceholderPrefix marks a password-hash slot that holds reset material
// instead of a password hash.
const ResetPlaceholderPrefix = "$reset$"

// Credential is the decoded form of the password-hash and legacy-hash slots.
type Credential struct {
	Kind CredentialKind
	Hash string // bcrypt string for CredentialModern, base64 blob for CredentialLegacy

	// Set only for CredentialResetPending
	ResetSalt   []byte
	ResetDigest []byte
}

// Credential decodes the record's password slots into a single variant.
// A non-empty password hash always wins over a legacy hash.
func (u *User) Credential() Credential {
	switch {
	case strings.HasPrefix(u.PasswordHash, ResetPlaceholderPrefix):
		salt, digest, ok := ParseResetPlaceholder(u.PasswordHash)
		if !ok {
			return Credential{Kind: CredentialCorrupt}
		}
		return Credential{Kind: CredentialResetPending, ResetSalt: salt, ResetDigest: digest}
	case u.PasswordHash != "":
		if !strings.HasPrefix(u.PasswordHash, "$2") {
			return Credential{Kind: CredentialCorrupt, Hash: u.PasswordHash}
		}
		return Credential{Kind: CredentialModern, Hash: u.PasswordHash}
	case u.LegacyHash != "":
		return Credential{Kind: CredentialLegacy, Hash: u.LegacyHash}
	default:
		return Credential{Kind: CredentialNone}
	}
}

// ResetPlaceholder encodes reset material for the password-hash slot:
// $reset$<base64 salt>$<hex digest of the temporary password>
func ResetPlaceholder(salt, digest []byte) string {
	return ResetPlaceholderPrefix +
		base64.RawStdEncoding.EncodeToString(salt) + "$" +
		hex.EncodeToString(digest)
}

// ParseResetPlaceholder is the inverse of ResetPlaceholder
func ParseResetPlaceholder(value string) (salt, digest []byte, ok bool) {
	rest, found := strings.CutPrefix(value, ResetPlaceholderPrefix)
	if !found {
		return nil, nil, false
	}
	saltPart, digestPart, found := strings.Cut(rest, "$")
	if !found {
		return nil, nil, false
	}
	salt, err := base64.RawStdEncoding.DecodeString(saltPart)
	if err != nil || len(salt) == 0 {
		return nil, nil, false
	}
	digest, err = hex.DecodeString(digestPart)
	if err != nil || len(digest) == 0 {
		return nil, nil, false
	}
	return salt, digest, true
}

// IndexRecord is the searchable projection of a User. It carries no secrets.
type IndexRecord struct {
	UID       string
	Username  string
	FirstName string
	LastName  string
	Email     string
	CellPhone string
	PersonRef string
}

// ToIndexRecord projects the non-secret fields of the user
func (u *User) ToIndexRecord() IndexRecord {
	return IndexRecord{
		UID:       u.UID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CellPhone: u.CellPhone,
		PersonRef: u.PersonRef,
	}
}
