package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	internalauth "github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/auth"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/metrics"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/auth"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/logger"
)

// CredentialStore is the part of the user store the credential service needs
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, uid, passwordHash string) error
	SwapPasswordHash(ctx context.Context, uid, current, passwordHash string) error
}

// ResetNotifier delivers a reset token out of band
type ResetNotifier interface {
	SendPasswordResetEmail(ctx context.Context, user *models.User, token string, expiresAt time.Time) error
}

// ResetTicket is the outcome of a reset request
type ResetTicket struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// CredentialService authenticates users and manages their passwords
type CredentialService struct {
	store    CredentialStore
	hasher   *auth.PasswordHasher
	legacy   auth.LegacyVerifier
	policy   *auth.PasswordPolicy
	codec    *internalauth.ResetTokenCodec
	notifier ResetNotifier
	metrics  *metrics.Collector
	audit    *logger.AuditLogger
	logger   *slog.Logger
}

// NewCredentialService creates a new CredentialService
func NewCredentialService(
	store CredentialStore,
	hasher *auth.PasswordHasher,
	policy *auth.PasswordPolicy,
	codec *internalauth.ResetTokenCodec,
	m *metrics.Collector,
	audit *logger.AuditLogger,
	logger *slog.Logger,
) *CredentialService {
	return &CredentialService{
		store:   store,
		hasher:  hasher,
		policy:  policy,
		codec:   codec,
		metrics: m,
		audit:   audit,
		logger:  logger,
	}
}

// WithNotifier sets the notifier used to deliver reset tokens
func (s *CredentialService) WithNotifier(n ResetNotifier) *CredentialService {
	s.notifier = n
	return s
}

// Authenticate verifies password for username. It returns the user and true
// on success; every failure (unknown user, wrong password, pending reset,
// store error) yields nil and false.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (*models.User, bool) {
	user, reason := s.authenticate(ctx, username, password)

	ok := reason == ""
	s.metrics.AuthAttempt(ok)
	event := logger.AuditEvent{Username: username, Success: ok, FailureReason: reason}
	if user != nil {
		event.UserID = user.UID
	}
	s.audit.LogAuthAttempt(event)

	if !ok {
		return nil, false
	}
	return user, true
}

func (s *CredentialService) authenticate(ctx context.Context, username, password string) (*models.User, string) {
	if username == "" || password == "" {
		return nil, "missing credentials"
	}

	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to load user for authentication", slog.Any("error", err))
		}
		return nil, "invalid credentials"
	}

	cred := user.Credential()
	switch cred.Kind {
	case models.CredentialLegacy:
		valid, err := s.legacy.Validate(password, cred.Hash)
		if err != nil {
			s.logger.Error("unreadable legacy hash", slog.String("user_id", user.UID), slog.Any("error", err))
			return user, "corrupt credential"
		}
		if !valid {
			return user, "invalid credentials"
		}
		return user, ""

	case models.CredentialModern:
		valid, err := s.hasher.Verify(cred.Hash, password)
		if err != nil {
			s.logger.Error("unreadable password hash", slog.String("user_id", user.UID), slog.Any("error", err))
			return user, "corrupt credential"
		}
		if !valid {
			return user, "invalid credentials"
		}
		s.upgrade(ctx, user, cred.Hash, password)
		return user, ""

	case models.CredentialResetPending:
		return user, "password reset pending"

	case models.CredentialCorrupt:
		s.logger.Error("corrupt credential", slog.String("user_id", user.UID))
		return user, "corrupt credential"

	default:
		return user, "no password set"
	}
}

// upgrade rehashes at the current cost. Authentication has already succeeded,
// so failures are only logged.
func (s *CredentialService) upgrade(ctx context.Context, user *models.User, hash, password string) {
	upgraded, err := s.hasher.Upgrade(hash, password)
	if err != nil {
		s.logger.Warn("failed to upgrade password hash", slog.String("user_id", user.UID), slog.Any("error", err))
		return
	}
	if upgraded == hash {
		return
	}

	// A reset or admin change may have replaced the hash since it was read
	if err := s.store.SwapPasswordHash(ctx, user.UID, hash, upgraded); err != nil {
		s.logger.Warn("failed to persist upgraded password hash", slog.String("user_id", user.UID), slog.Any("error", err))
		return
	}

	user.PasswordHash = upgraded
	s.metrics.PasswordChanged(metrics.ChangeUpgrade)
	s.audit.LogPasswordChange(logger.EventPasswordUpgrade, user.UID, user.Username, true, "")
}

// RequestReset puts the account into reset-pending state and issues a reset
// token. The current password stops working until the reset is confirmed.
func (s *CredentialService) RequestReset(ctx context.Context, username string) (*ResetTicket, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	temp, err := auth.GenerateTemporaryPassword()
	if err != nil {
		s.logger.Error("failed to generate temporary password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	salt, err := auth.GenerateResetSalt()
	if err != nil {
		s.logger.Error("failed to generate reset salt", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.codec.Issue(user.Username, temp, salt)
	if err != nil {
		s.logger.Error("failed to issue reset token", slog.String("user_id", user.UID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	digest := sha256.Sum256([]byte(temp))
	placeholder := models.ResetPlaceholder(salt, digest[:])
	if err := s.store.UpdatePasswordHash(ctx, user.UID, placeholder); err != nil {
		s.logger.Error("failed to store reset placeholder", slog.String("user_id", user.UID), slog.Any("error", err))
		return nil, storeError(err)
	}
	user.PasswordHash = placeholder
	user.LegacyHash = ""

	expiresAt, ok := internalauth.ExpiryOf(token)
	if !ok {
		expiresAt = time.Now().Add(s.codec.Lifetime())
	}

	s.audit.LogPasswordChange(logger.EventResetRequested, user.UID, user.Username, true, "")

	if s.notifier != nil && user.Email != "" {
		if err := s.notifier.SendPasswordResetEmail(ctx, user, token, expiresAt); err != nil {
			s.logger.Warn("failed to send password reset email", slog.String("user_id", user.UID), slog.Any("error", err))
		}
	}

	return &ResetTicket{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// ConfirmReset completes a pending reset by replacing the reset placeholder
// with a hash of newPassword.
func (s *CredentialService) ConfirmReset(ctx context.Context, username, token, newPassword string) error {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}

	if err := s.checkResetToken(user, token); err != nil {
		s.audit.LogPasswordChange(logger.EventResetConfirmed, user.UID, user.Username, false, err.Error())
		return models.ErrAuthenticationFailed
	}

	if err := s.validatePassword(newPassword); err != nil {
		s.audit.LogPasswordChange(logger.EventResetConfirmed, user.UID, user.Username, false, "weak password")
		return err
	}

	// The placeholder is swapped out atomically so a token is consumed once
	if err := s.setPassword(ctx, user, newPassword, user.PasswordHash); err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.audit.LogPasswordChange(logger.EventResetConfirmed, user.UID, user.Username, false, "reset already completed")
			return models.ErrAuthenticationFailed
		}
		return err
	}

	s.metrics.PasswordChanged(metrics.ChangeReset)
	s.audit.LogPasswordChange(logger.EventResetConfirmed, user.UID, user.Username, true, "")
	return nil
}

func (s *CredentialService) checkResetToken(user *models.User, token string) error {
	cred := user.Credential()
	if cred.Kind != models.CredentialResetPending {
		return errors.New("no reset pending")
	}

	tokenUser, temp, err := s.codec.Redeem(token, cred.ResetSalt)
	if err != nil {
		return err
	}
	if tokenUser != user.Username {
		return errors.New("token issued for another user")
	}

	digest := sha256.Sum256([]byte(temp))
	if subtle.ConstantTimeCompare(digest[:], cred.ResetDigest) != 1 {
		return errors.New("temporary password mismatch")
	}
	return nil
}

// ChangePassword sets newPassword without any token. Callers must have
// authorized the change.
func (s *CredentialService) ChangePassword(ctx context.Context, username, newPassword string) error {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}

	if err := s.validatePassword(newPassword); err != nil {
		s.audit.LogPasswordChange(logger.EventPasswordChange, user.UID, user.Username, false, "weak password")
		return err
	}

	if err := s.setPassword(ctx, user, newPassword, ""); err != nil {
		return err
	}

	s.metrics.PasswordChanged(metrics.ChangeAdmin)
	s.audit.LogPasswordChange(logger.EventPasswordChange, user.UID, user.Username, true, "")
	return nil
}

func (s *CredentialService) lookup(ctx context.Context, username string) (*models.User, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.String("username", username))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("username", username), slog.Any("error", err))
		return nil, storeError(err)
	}
	return user, nil
}

func (s *CredentialService) validatePassword(password string) error {
	if err := s.policy.Validate(password); err != nil {
		return fmt.Errorf("%w: %w", models.ErrWeakPassword, err)
	}
	return nil
}

// setPassword hashes and stores password. A non-empty current makes the
// write conditional on the slot still holding current; losing that race
// returns models.ErrConflict.
func (s *CredentialService) setPassword(ctx context.Context, user *models.User, password, current string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if current == "" {
		err = s.store.UpdatePasswordHash(ctx, user.UID, hash)
	} else {
		err = s.store.SwapPasswordHash(ctx, user.UID, current, hash)
	}
	if errors.Is(err, models.ErrConflict) {
		s.logger.Warn("password hash changed concurrently", slog.String("user_id", user.UID))
		return err
	}
	if err != nil {
		s.logger.Error("failed to store password hash", slog.String("user_id", user.UID), slog.Any("error", err))
		return storeError(err)
	}

	user.PasswordHash = hash
	user.LegacyHash = ""
	return nil
}

// storeError keeps ErrNotFound and ErrStore visible to errors.Is and folds
// anything else into ErrStore.
func storeError(err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrStore, err)
}
