package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/auth"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	pkghttp "github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/http"
)

// Authenticator verifies username/password pairs
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, bool)
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	service  Authenticator
	timing   *auth.TimingDelay
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. timing may be nil to disable
// response padding.
func NewAuthHandler(service Authenticator, timing *auth.TimingDelay, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		timing:   timing,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// AuthenticateRequest represents the request body for authentication
type AuthenticateRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// Authenticate verifies a username and password and returns the user.
// Every failure is answered with the same 401 after the same delay.
func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, ok := h.service.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
	h.timing.WaitFrom(start, ok)

	if !ok {
		h.logger.Info("authentication failed",
			slog.String("ip_address", pkghttp.ExtractClientIP(r, h.ipConfig)))
		pkghttp.WriteUnauthorized(w, "Invalid username or password")
		return
	}

	writeJSON(w, http.StatusOK, userModelToResponse(user))
}
