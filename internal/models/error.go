package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Credential errors
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidToken         = errors.New("invalid password reset token")
	ErrWeakPassword         = errors.New("password does not satisfy policy")
	ErrCorruptCredential    = errors.New("stored credential is corrupt")

	// Collaborator errors
	ErrStore = errors.New("credential store failure")
	ErrIndex = errors.New("search index failure")
)
