package http

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in the "error" field of failed responses
const (
	CodeBadRequest        = "bad_request"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeWeakPassword      = "weak_password"
	CodeRateLimited       = "rate_limit_exceeded"
	CodeInternal          = "internal_error"
	CodeSearchUnavailable = "search_unavailable"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// WriteError writes a JSON error body with the given status and code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

// WriteErrorWithDetails is WriteError with an extra details field.
// Error bodies are never cached; they may describe a credential failure.
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

// WriteWeakPassword rejects a password that fails the policy. The policy
// reason is deliberately not echoed.
func WriteWeakPassword(w http.ResponseWriter) {
	WriteError(w, http.StatusBadRequest, CodeWeakPassword, "Password does not satisfy the password policy")
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, CodeRateLimited, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, message)
}

// WriteSearchUnavailable reports a failing search index. Store-backed
// endpoints keep working while this is returned.
func WriteSearchUnavailable(w http.ResponseWriter) {
	WriteError(w, http.StatusServiceUnavailable, CodeSearchUnavailable, "Search is temporarily unavailable")
}
