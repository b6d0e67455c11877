package auth

import (
	"fmt"
	"time"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager signs and validates application and user JWTs.
// Tokens are normally minted by the security token service that shares the
// secret; GenerateToken exists for tooling and tests.
type TokenManager struct {
	secret      string
	tokenExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, tokenExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:      secret,
		tokenExpiry: tokenExpiry,
	}
}

// GenerateToken creates a signed token with a unique JTI
func (tm *TokenManager) GenerateToken(tokenType, subject, role string) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		Type:    tokenType,
		Subject: subject,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type == "" {
		return nil, fmt.Errorf("invalid token: missing type")
	}

	return claims, nil
}

// ValidateApplicationToken accepts only tokens issued to applications
func (tm *TokenManager) ValidateApplicationToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := tm.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != models.TokenTypeApplication {
		return nil, models.ErrUnauthorized
	}
	return claims, nil
}

// ValidateAdminToken accepts only user tokens carrying the admin role.
// A valid non-admin user token yields models.ErrForbidden.
func (tm *TokenManager) ValidateAdminToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := tm.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != models.TokenTypeUser {
		return nil, models.ErrUnauthorized
	}
	if claims.Role != models.RoleAdmin {
		return nil, models.ErrForbidden
	}
	return claims, nil
}
