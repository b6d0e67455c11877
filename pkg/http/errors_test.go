package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "test_error", "Test message", "Additional details")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	resp := decodeError(t, w)
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Equal(t, "Additional details", resp.Details)
}

func TestWriteError_OmitsEmptyDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, http.StatusTeapot, "teapot", "Short and stout")

	assert.NotContains(t, w.Body.String(), "details")
	assert.Equal(t, "teapot", decodeError(t, w).Error)
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(w http.ResponseWriter) { pkghttp.WriteBadRequest(w, "m") }, http.StatusBadRequest, pkghttp.CodeBadRequest},
		{"unauthorized", func(w http.ResponseWriter) { pkghttp.WriteUnauthorized(w, "m") }, http.StatusUnauthorized, pkghttp.CodeUnauthorized},
		{"forbidden", func(w http.ResponseWriter) { pkghttp.WriteForbidden(w, "m") }, http.StatusForbidden, pkghttp.CodeForbidden},
		{"not found", func(w http.ResponseWriter) { pkghttp.WriteNotFound(w, "m") }, http.StatusNotFound, pkghttp.CodeNotFound},
		{"conflict", func(w http.ResponseWriter) { pkghttp.WriteConflict(w, "m") }, http.StatusConflict, pkghttp.CodeConflict},
		{"weak password", pkghttp.WriteWeakPassword, http.StatusBadRequest, pkghttp.CodeWeakPassword},
		{"rate limited", func(w http.ResponseWriter) { pkghttp.WriteTooManyRequests(w, "m") }, http.StatusTooManyRequests, pkghttp.CodeRateLimited},
		{"internal", func(w http.ResponseWriter) { pkghttp.WriteInternalError(w, "m") }, http.StatusInternalServerError, pkghttp.CodeInternal},
		{"search unavailable", pkghttp.WriteSearchUnavailable, http.StatusServiceUnavailable, pkghttp.CodeSearchUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestWriteWeakPassword_DoesNotLeakPolicy(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteWeakPassword(w)

	resp := decodeError(t, w)
	assert.Empty(t, resp.Details)
	assert.NotContains(t, resp.Message, "characters")
}
