package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/auth"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/handlers"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAuthenticate_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthenticator{
		AuthenticateFunc: func(ctx context.Context, username, password string) (*models.User, bool) {
			return &models.User{UID: "uid-1", Username: username, PasswordHash: "$2a$12$secret"}, true
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil, nil, handlers.NewTestLogger())
	req := handlers.NewTestRequest(t, http.MethodPost, "/user/authenticate", handlers.AuthenticateRequest{
		Username: "alice",
		Password: "correct horse",
	})

	w := httptest.NewRecorder()
	handler.Authenticate(w, req)

	var resp handlers.UserResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "uid-1", resp.UID)
	assert.NotContains(t, w.Body.String(), "$2a$", "hashes never leave the service")
}

func TestAuthenticate_FailureIsDelayed(t *testing.T) {
	mockAuth := &handlers.MockAuthenticator{}
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 50})

	handler := handlers.NewAuthHandler(mockAuth, timing, nil, handlers.NewTestLogger())
	req := handlers.NewTestRequest(t, http.MethodPost, "/user/authenticate", handlers.AuthenticateRequest{
		Username: "alice",
		Password: "wrong",
	})

	start := time.Now()
	w := httptest.NewRecorder()
	handler.Authenticate(w, req)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestAuthenticate_InvalidRequest(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthenticator{}, nil, nil, handlers.NewTestLogger())

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing password", handlers.AuthenticateRequest{Username: "alice"}},
		{"missing username", handlers.AuthenticateRequest{Password: "pw"}},
		{"not an object", "just a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Authenticate(w, handlers.NewTestRequest(t, http.MethodPost, "/user/authenticate", tt.body))
			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		})
	}
}
