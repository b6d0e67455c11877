package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	pkghttp "github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// ClaimsContextKey is the key for storing admin token claims in context
	ClaimsContextKey contextKey = "claims"

	// ApplicationContextKey is the key for the calling application's claims
	ApplicationContextKey contextKey = "application"
)

// bearerToken extracts the token of an "Authorization: Bearer" header
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}

// RequireAdmin validates a Bearer admin token and injects its claims into context
func RequireAdmin(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "missing or malformed authorization header")
				return
			}

			claims, err := tm.ValidateAdminToken(token)
			if err != nil {
				if errors.Is(err, models.ErrForbidden) {
					pkghttp.WriteForbidden(w, "insufficient permissions")
					return
				}
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireApplication admits only callers presenting a Bearer application
// token. Credential endpoints hand out reset tokens and verify passwords,
// so they are reserved for trusted applications.
func RequireApplication(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "missing or malformed authorization header")
				return
			}

			claims, err := tm.ValidateApplicationToken(token)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired application token")
				return
			}

			ctx := context.WithValue(r.Context(), ApplicationContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the admin claims stored by RequireAdmin, or nil
func ClaimsFromContext(ctx context.Context) *models.TokenClaims {
	claims, ok := ctx.Value(ClaimsContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// ApplicationFromContext returns the application claims stored by
// RequireApplication, or nil
func ApplicationFromContext(ctx context.Context) *models.TokenClaims {
	claims, ok := ctx.Value(ApplicationContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
