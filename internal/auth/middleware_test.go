package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/auth"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAdmin(t *testing.T) {
	tm := auth.NewTokenManager(testJWTSecret, time.Hour)

	admin, err := tm.GenerateToken(models.TokenTypeUser, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	plainUser, err := tm.GenerateToken(models.TokenTypeUser, "user-1", "user")
	require.NoError(t, err)

	var seen *models.TokenClaims
	handler := auth.RequireAdmin(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"non-admin", "Bearer " + plainUser, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, "admin-1", seen.Subject)
			}
		})
	}
}

func TestRequireApplication(t *testing.T) {
	tm := auth.NewTokenManager(testJWTSecret, time.Hour)
	other := auth.NewTokenManager("another-secret-that-is-at-least-32-characters", time.Hour)

	app, err := tm.GenerateToken(models.TokenTypeApplication, "app-1", "")
	require.NoError(t, err)
	admin, err := tm.GenerateToken(models.TokenTypeUser, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	forged, err := other.GenerateToken(models.TokenTypeApplication, "app-1", "")
	require.NoError(t, err)

	var seen *models.TokenClaims
	handler := auth.RequireApplication(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.ApplicationFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + app, http.StatusUnauthorized},
		{"user token", "Bearer " + admin, http.StatusUnauthorized},
		{"foreign signature", "Bearer " + forged, http.StatusUnauthorized},
		{"application", "Bearer " + app, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/user/alice/reset_password", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, "app-1", seen.Subject)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}
