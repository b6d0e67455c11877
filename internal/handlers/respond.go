package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	pkghttp "github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/http"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service sentinel errors onto HTTP responses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	case errors.Is(err, models.ErrAuthenticationFailed), errors.Is(err, models.ErrInvalidToken):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrWeakPassword):
		pkghttp.WriteWeakPassword(w)
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "User already exists")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
