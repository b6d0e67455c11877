package logger

import "strings"

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	// Mask username: keep first char, mask rest
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Mask all but the TLD
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

var sensitiveParams = []string{
	"password",
	"token",
	"secret",
	"pepper",
	"apikey",
	"auth",
}

// SanitizeQueryString reports whether the query string carries a sensitive
// parameter (e.g. changePasswordToken) and must be redacted as a whole.
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}

// SanitizePath redacts the tokens embedded in the admin password change path
// /password/{appToken}/change/{adminToken}/...
func SanitizePath(path string) string {
	segments := strings.Split(path, "/")
	if len(segments) < 5 || segments[1] != "password" || segments[3] != "change" {
		return path
	}

	segments[2] = "[REDACTED]"
	segments[4] = "[REDACTED]"
	return strings.Join(segments, "/")
}
