package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	pkghttp "github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserService defines the interface for identity management
type UserService interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateUser(ctx context.Context, user *models.User, password string) (*models.User, error)
	UpdateUser(ctx context.Context, uid string, patch *models.User) (*models.User, error)
	DeleteUser(ctx context.Context, uid string) error
	Search(ctx context.Context, query string, limit int) ([]models.IndexRecord, error)
}

// UserHandler handles identity CRUD and search requests
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// Request/Response DTOs

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,username"`
	FirstName string `json:"firstName" validate:"omitempty,max=255"`
	LastName  string `json:"lastName" validate:"omitempty,max=255"`
	Email     string `json:"email" validate:"omitempty,email"`
	CellPhone string `json:"cellPhone" validate:"omitempty,max=32"`
	PersonRef string `json:"personRef" validate:"omitempty,max=255"`
	Password  string `json:"password" validate:"omitempty,max=128"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Username  string `json:"username" validate:"omitempty,username"`
	FirstName string `json:"firstName" validate:"omitempty,max=255"`
	LastName  string `json:"lastName" validate:"omitempty,max=255"`
	Email     string `json:"email" validate:"omitempty,email"`
	CellPhone string `json:"cellPhone" validate:"omitempty,max=32"`
	PersonRef string `json:"personRef" validate:"omitempty,max=255"`
}

// UserResponse represents a user in the HTTP response. It never carries
// credential material.
type UserResponse struct {
	UID       string `json:"uid"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	CellPhone string `json:"cellPhone"`
	PersonRef string `json:"personRef"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ListUsersResponse represents a list of users
type ListUsersResponse struct {
	Users []*UserResponse `json:"users"`
	Total int             `json:"total"`
}

// SearchResponse represents search hits
type SearchResponse struct {
	Users []*UserResponse `json:"users"`
	Total int             `json:"total"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// userModelToResponse converts a user model to a response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		UID:       user.UID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		CellPhone: user.CellPhone,
		PersonRef: user.PersonRef,
		CreatedAt: formatTime(user.CreatedAt),
		UpdatedAt: formatTime(user.UpdatedAt),
	}
}

func indexRecordToResponse(r models.IndexRecord) *UserResponse {
	return &UserResponse{
		UID:       r.UID,
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		CellPhone: r.CellPhone,
		PersonRef: r.PersonRef,
	}
}

// RegisterRoutes registers all user routes with the chi router
func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Route("/users", func(r chi.Router) {
		r.Post("/", h.CreateUser)        // POST /users
		r.Get("/", h.ListUsers)          // GET /users
		r.Get("/search", h.SearchUsers)  // GET /users/search?q=
		r.Get("/{uid}", h.GetUser)       // GET /users/{uid}
		r.Put("/{uid}", h.UpdateUser)    // PUT /users/{uid}
		r.Delete("/{uid}", h.DeleteUser) // DELETE /users/{uid}
	})
}

// GetUser retrieves a user by UID
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	user, err := h.service.GetUser(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userModelToResponse(user))
}

// ListUsers retrieves a list of users with pagination
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query().Get("limit"), 10, 1, 500)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid limit parameter")
		return
	}
	offset, err := parseIntParam(r.URL.Query().Get("offset"), 0, 0, 1000000)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid offset parameter")
		return
	}

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := &ListUsersResponse{
		Users: make([]*UserResponse, len(users)),
		Total: len(users),
	}
	for i, user := range users {
		response.Users[i] = userModelToResponse(user)
	}

	writeJSON(w, http.StatusOK, response)
}

// SearchUsers queries the search index
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query().Get("limit"), 20, 1, 100)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid limit parameter")
		return
	}

	records, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		pkghttp.WriteSearchUnavailable(w)
		return
	}

	response := &SearchResponse{
		Users: make([]*UserResponse, len(records)),
		Total: len(records),
	}
	for i, rec := range records {
		response.Users[i] = indexRecordToResponse(rec)
	}

	writeJSON(w, http.StatusOK, response)
}

// CreateUser creates a new user
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user := &models.User{
		Username:  strings.TrimSpace(req.Username),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		CellPhone: strings.TrimSpace(req.CellPhone),
		PersonRef: strings.TrimSpace(req.PersonRef),
	}

	createdUser, err := h.service.CreateUser(r.Context(), user, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, userModelToResponse(createdUser))
}

// UpdateUser updates the profile fields of an existing user
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	var req UpdateUserRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	patch := &models.User{
		Username:  strings.TrimSpace(req.Username),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		CellPhone: strings.TrimSpace(req.CellPhone),
		PersonRef: strings.TrimSpace(req.PersonRef),
	}

	updatedUser, err := h.service.UpdateUser(r.Context(), uid, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userModelToResponse(updatedUser))
}

// DeleteUser deletes a user
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	if err := h.service.DeleteUser(r.Context(), uid); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseIntParam parses an optional integer parameter, falling back to def
func parseIntParam(value string, def, lo, hi int) (int, error) {
	if value == "" {
		return def, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, strconv.ErrRange
	}

	return n, nil
}
