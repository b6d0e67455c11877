package auth

import (
	"fmt"
	"strings"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const MinPasswordLen = 8

// PasswordPolicyError holds validation error details (internal use only)
type PasswordPolicyError struct {
	Errors []string
}

func (e *PasswordPolicyError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	// Never expose specific requirements to callers
	return "invalid password"
}

// Common weak passwords to reject
var commonPasswords = []string{
	"password",
	"12345678",
	"qwerty",
	"abc123",
	"password1",
	"password123",
	"password123!",
	"123456",
	"123456789",
	"admin",
	"letmein",
	"welcome",
	"monkey",
	"dragon",
	"master",
	"123123",
	"passw0rd",
	"shadow",
	"sunshine",
	"princess",
	"starwars",
	"football",
	"trustno1",
	"iloveyou",
	"qwertyuiop",
	"changeme",
}

// PasswordPolicy rejects short, denylisted and (optionally) low-entropy passwords
type PasswordPolicy struct {
	MinLength   int
	MinStrength int // zxcvbn score 0-4, 0 disables the check
	denylist    map[string]struct{}
}

// NewPasswordPolicy builds a policy whose denylist is the built-in list plus extra
func NewPasswordPolicy(minLength, minStrength int, extra ...string) *PasswordPolicy {
	if minLength <= 0 {
		minLength = MinPasswordLen
	}
	denylist := make(map[string]struct{}, len(commonPasswords)+len(extra))
	for _, p := range commonPasswords {
		denylist[p] = struct{}{}
	}
	for _, p := range extra {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			denylist[p] = struct{}{}
		}
	}
	return &PasswordPolicy{
		MinLength:   minLength,
		MinStrength: minStrength,
		denylist:    denylist,
	}
}

// Validate returns a *PasswordPolicyError describing every violated rule
func (p *PasswordPolicy) Validate(password string) error {
	errors := make([]string, 0)

	length := len([]rune(password))
	if length < p.MinLength {
		errors = append(errors, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}
	if length > MaxPasswordLen {
		errors = append(errors, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	if _, weak := p.denylist[strings.ToLower(password)]; weak {
		errors = append(errors, "is too common, please choose a more unique password")
	}

	if p.MinStrength > 0 && len(errors) == 0 {
		minScore := min(p.MinStrength, 4)
		if zxcvbn.PasswordStrength(password, nil).Score < minScore {
			errors = append(errors, "is too easy to guess")
		}
	}

	if len(errors) > 0 {
		return &PasswordPolicyError{Errors: errors}
	}

	return nil
}
