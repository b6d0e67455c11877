package models

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeApplication = "application"
	TokenTypeUser        = "user"

	RoleAdmin = "admin"
)

// TokenClaims are carried by application and admin JWTs
type TokenClaims struct {
	Type    string `json:"type"`
	Subject string `json:"sub_id"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
