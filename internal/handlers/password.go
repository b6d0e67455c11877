package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/services"
	pkghttp "github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/http"
	"github.com/go-chi/chi/v5"
)

// maxPasswordBody bounds the raw text body of the admin password change
const maxPasswordBody = 1024

// PasswordService defines the password operations exposed over HTTP
type PasswordService interface {
	RequestReset(ctx context.Context, username string) (*services.ResetTicket, error)
	ConfirmReset(ctx context.Context, username, token, newPassword string) error
	ChangePassword(ctx context.Context, username, newPassword string) error
}

// TokenValidator checks the application and admin tokens of the admin
// password change path
type TokenValidator interface {
	ValidateApplicationToken(token string) (*models.TokenClaims, error)
	ValidateAdminToken(token string) (*models.TokenClaims, error)
}

// PasswordHandler handles password reset and change requests
type PasswordHandler struct {
	service  PasswordService
	tokens   TokenValidator
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewPasswordHandler creates a new PasswordHandler
func NewPasswordHandler(service PasswordService, tokens TokenValidator, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *PasswordHandler {
	return &PasswordHandler{
		service:  service,
		tokens:   tokens,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// ResetPasswordResponse is returned by a reset request. The caller delivers
// the token to the user.
type ResetPasswordResponse struct {
	UID                 string `json:"uid"`
	Email               string `json:"email"`
	CellPhone           string `json:"cellPhone"`
	ChangePasswordToken string `json:"changePasswordToken"`
}

// ChangePasswordRequest represents the body of a reset confirmation
type ChangePasswordRequest struct {
	NewPassword string `json:"newpassword" validate:"required,max=128"`
}

// ResetPassword starts a reset for the account named in the path
//
// POST /user/{uid}/reset_password
func (h *PasswordHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "uid")
	if username == "" {
		pkghttp.WriteBadRequest(w, "Username is required")
		return
	}

	ticket, err := h.service.RequestReset(r.Context(), username)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.logger.Info("password reset requested",
		slog.String("user_id", ticket.User.UID),
		slog.String("ip_address", pkghttp.ExtractClientIP(r, h.ipConfig)))

	writeJSON(w, http.StatusOK, &ResetPasswordResponse{
		UID:                 ticket.User.UID,
		Email:               ticket.User.Email,
		CellPhone:           ticket.User.CellPhone,
		ChangePasswordToken: ticket.Token,
	})
}

// ChangePassword completes a reset with the token from ResetPassword
//
// POST /user/{uid}/change_password?changePasswordToken=...
func (h *PasswordHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "uid")
	token := r.URL.Query().Get("changePasswordToken")
	if username == "" || token == "" {
		pkghttp.WriteBadRequest(w, "Username and changePasswordToken are required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ConfirmReset(r.Context(), username, token, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AdminChangePassword sets a password on behalf of an administrator. The
// raw request body is the new password.
//
// POST /password/{appToken}/change/{adminToken}/user/username/{username}
func (h *PasswordHandler) AdminChangePassword(w http.ResponseWriter, r *http.Request) {
	if _, err := h.tokens.ValidateApplicationToken(chi.URLParam(r, "appToken")); err != nil {
		pkghttp.WriteUnauthorized(w, "Invalid application token")
		return
	}

	claims, err := h.tokens.ValidateAdminToken(chi.URLParam(r, "adminToken"))
	if err != nil {
		if errors.Is(err, models.ErrForbidden) {
			pkghttp.WriteForbidden(w, "Administrator role required")
			return
		}
		pkghttp.WriteUnauthorized(w, "Invalid admin token")
		return
	}

	username := chi.URLParam(r, "username")
	if username == "" {
		pkghttp.WriteBadRequest(w, "Username is required")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPasswordBody+1))
	if err != nil || len(body) > maxPasswordBody {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	newPassword := strings.TrimRight(string(body), "\r\n")
	if newPassword == "" {
		pkghttp.WriteBadRequest(w, "New password is required")
		return
	}

	if err := h.service.ChangePassword(r.Context(), username, newPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	h.logger.Info("password changed by administrator",
		slog.String("admin", claims.Subject),
		slog.String("username", username))

	w.WriteHeader(http.StatusNoContent)
}
