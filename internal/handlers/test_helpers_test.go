package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/services"
	pkghttp "github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithURLParams attaches chi route parameters to req
func WithURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// NewTestLogger discards log output
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockAuthenticator implements Authenticator for testing
type MockAuthenticator struct {
	AuthenticateFunc func(ctx context.Context, username, password string) (*models.User, bool)
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, username, password string) (*models.User, bool) {
	if m.AuthenticateFunc == nil {
		return nil, false
	}
	return m.AuthenticateFunc(ctx, username, password)
}

// MockPasswordService implements PasswordService for testing
type MockPasswordService struct {
	RequestResetFunc   func(ctx context.Context, username string) (*services.ResetTicket, error)
	ConfirmResetFunc   func(ctx context.Context, username, token, newPassword string) error
	ChangePasswordFunc func(ctx context.Context, username, newPassword string) error
}

func (m *MockPasswordService) RequestReset(ctx context.Context, username string) (*services.ResetTicket, error) {
	if m.RequestResetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.RequestResetFunc(ctx, username)
}

func (m *MockPasswordService) ConfirmReset(ctx context.Context, username, token, newPassword string) error {
	if m.ConfirmResetFunc == nil {
		return models.ErrAuthenticationFailed
	}
	return m.ConfirmResetFunc(ctx, username, token, newPassword)
}

func (m *MockPasswordService) ChangePassword(ctx context.Context, username, newPassword string) error {
	if m.ChangePasswordFunc == nil {
		return nil
	}
	return m.ChangePasswordFunc(ctx, username, newPassword)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	GetUserFunc    func(ctx context.Context, uid string) (*models.User, error)
	ListUsersFunc  func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateUserFunc func(ctx context.Context, user *models.User, password string) (*models.User, error)
	UpdateUserFunc func(ctx context.Context, uid string, patch *models.User) (*models.User, error)
	DeleteUserFunc func(ctx context.Context, uid string) error
	SearchFunc     func(ctx context.Context, query string, limit int) ([]models.IndexRecord, error)
}

func (m *MockUserService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	if m.GetUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserFunc(ctx, uid)
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListUsersFunc == nil {
		return []*models.User{}, nil
	}
	return m.ListUsersFunc(ctx, limit, offset)
}

func (m *MockUserService) CreateUser(ctx context.Context, user *models.User, password string) (*models.User, error) {
	if m.CreateUserFunc == nil {
		return nil, models.ErrConflict
	}
	return m.CreateUserFunc(ctx, user, password)
}

func (m *MockUserService) UpdateUser(ctx context.Context, uid string, patch *models.User) (*models.User, error) {
	if m.UpdateUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateUserFunc(ctx, uid, patch)
}

func (m *MockUserService) DeleteUser(ctx context.Context, uid string) error {
	if m.DeleteUserFunc == nil {
		return nil
	}
	return m.DeleteUserFunc(ctx, uid)
}

func (m *MockUserService) Search(ctx context.Context, query string, limit int) ([]models.IndexRecord, error) {
	if m.SearchFunc == nil {
		return []models.IndexRecord{}, nil
	}
	return m.SearchFunc(ctx, query, limit)
}
