package routes

import (
	"net/http"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/auth"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/handlers"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	userHandler *handlers.UserHandler,
	authHandler *handlers.AuthHandler,
	passwordHandler *handlers.PasswordHandler,
	tokenManager *auth.TokenManager,
	rateLimitConfig middleware.RateLimitConfig,
) {
	byIP := middleware.RateLimitByIP(rateLimitConfig)
	byAccount := middleware.RateLimitByTarget(rateLimitConfig, func(r *http.Request) string {
		return chi.URLParam(r, "uid")
	})

	// Credential endpoints: trusted applications only, rate limited
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireApplication(tokenManager))
		r.With(byIP).Post("/user/authenticate", authHandler.Authenticate)
		r.With(byAccount).Post("/user/{uid}/reset_password", passwordHandler.ResetPassword)
		r.With(byAccount).Post("/user/{uid}/change_password", passwordHandler.ChangePassword)
	})

	// Tokens are carried in the path and checked by the handler
	router.With(byIP).Post("/password/{appToken}/change/{adminToken}/user/username/{username}",
		passwordHandler.AdminChangePassword)

	// Admin-only identity management
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin(tokenManager))
		userHandler.RegisterRoutes(r)
	})
}
