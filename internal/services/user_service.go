package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	internalauth "github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/auth"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/metrics"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/auth"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByUID(ctx context.Context, uid string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, uid string, user *models.User) (*models.User, error)
	Delete(ctx context.Context, uid string) error
}

// SearchIndex defines the interface for the user search index
type SearchIndex interface {
	Add(ctx context.Context, record models.IndexRecord) error
	Update(ctx context.Context, record models.IndexRecord) error
	Remove(ctx context.Context, uid string) error
	Size(ctx context.Context) (int, error)
	Search(ctx context.Context, query string, limit int) ([]models.IndexRecord, error)
}

// ReindexTrigger schedules an asynchronous index rebuild
type ReindexTrigger interface {
	Trigger() bool
}

// UserService manages identities in the store and keeps the search index in
// step with it. The store is authoritative; index failures never fail a call.
type UserService struct {
	repo      UserRepository
	index     SearchIndex
	reindexer ReindexTrigger
	hasher    *auth.PasswordHasher
	policy    *auth.PasswordPolicy
	metrics   *metrics.Collector
	audit     *logger.AuditLogger
	logger    *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	repo UserRepository,
	index SearchIndex,
	reindexer ReindexTrigger,
	hasher *auth.PasswordHasher,
	policy *auth.PasswordPolicy,
	m *metrics.Collector,
	audit *logger.AuditLogger,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		repo:      repo,
		index:     index,
		reindexer: reindexer,
		hasher:    hasher,
		policy:    policy,
		metrics:   m,
		audit:     audit,
		logger:    logger,
	}
}

// GetUser retrieves a user by UID
func (s *UserService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	user, err := s.repo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.String("user_id", uid))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", uid), slog.Any("error", err))
		return nil, storeError(err)
	}

	return user, nil
}

// GetUserByUsername retrieves a user by username (case-insensitive)
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
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

// ListUsers retrieves a list of users with pagination
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, storeError(err)
	}

	return users, nil
}

// CreateUser creates a new user. password may be empty, leaving the account
// without a credential.
func (s *UserService) CreateUser(ctx context.Context, user *models.User, password string) (*models.User, error) {
	exists, err := s.repo.UsernameExists(ctx, user.Username)
	if err != nil {
		s.logger.Error("failed to check username", slog.Any("error", err))
		return nil, storeError(err)
	}
	if exists {
		s.logger.Info("user already exists", slog.String("username", user.Username))
		return nil, models.ErrConflict
	}

	user.PasswordHash = ""
	user.LegacyHash = ""
	if password != "" {
		if err := s.policy.Validate(password); err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrWeakPassword, err)
		}

		hashedPassword, err := s.hasher.Hash(password)
		if err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		user.PasswordHash = hashedPassword
	}

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, storeError(err)
	}

	s.indexWrite("add", createdUser.UID, func() error {
		return s.index.Add(ctx, createdUser.ToIndexRecord())
	})

	s.audit.LogAccountAction(logger.EventUserCreated, createdUser.UID, actorMetadata(ctx))
	s.logger.Info("user created", slog.String("user_id", createdUser.UID))
	return createdUser, nil
}

// UpdateUser applies the non-empty profile fields of patch to the user
func (s *UserService) UpdateUser(ctx context.Context, uid string, patch *models.User) (*models.User, error) {
	existingUser, err := s.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	if patch.Username != "" && patch.Username != existingUser.Username {
		other, err := s.repo.GetByUsername(ctx, patch.Username)
		switch {
		case err == nil && other.UID != uid:
			return nil, models.ErrConflict
		case err != nil && !errors.Is(err, models.ErrNotFound):
			s.logger.Error("failed to check username", slog.String("user_id", uid), slog.Any("error", err))
			return nil, storeError(err)
		}
		existingUser.Username = patch.Username
	}
	if patch.FirstName != "" {
		existingUser.FirstName = patch.FirstName
	}
	if patch.LastName != "" {
		existingUser.LastName = patch.LastName
	}
	if patch.Email != "" {
		existingUser.Email = patch.Email
	}
	if patch.CellPhone != "" {
		existingUser.CellPhone = patch.CellPhone
	}
	if patch.PersonRef != "" {
		existingUser.PersonRef = patch.PersonRef
	}

	updatedUser, err := s.repo.Update(ctx, uid, existingUser)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to update user", slog.String("user_id", uid), slog.Any("error", err))
		return nil, storeError(err)
	}

	s.indexWrite("update", uid, func() error {
		return s.index.Update(ctx, updatedUser.ToIndexRecord())
	})

	s.audit.LogAccountAction(logger.EventUserUpdated, uid, actorMetadata(ctx))
	s.logger.Info("user updated", slog.String("user_id", uid))
	return updatedUser, nil
}

// DeleteUser deletes a user
func (s *UserService) DeleteUser(ctx context.Context, uid string) error {
	if _, err := s.GetUser(ctx, uid); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, uid); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("user_id", uid), slog.Any("error", err))
		return storeError(err)
	}

	s.indexWrite("remove", uid, func() error {
		return s.index.Remove(ctx, uid)
	})

	s.audit.LogAccountAction(logger.EventUserDeleted, uid, actorMetadata(ctx))
	s.logger.Info("user deleted", slog.String("user_id", uid))
	return nil
}

// Search queries the index. An empty result while the store holds users means
// the index has drifted; a rebuild is scheduled and the empty result returned.
func (s *UserService) Search(ctx context.Context, query string, limit int) ([]models.IndexRecord, error) {
	records, err := s.index.Search(ctx, query, limit)
	if err != nil {
		s.logger.Error("search failed", slog.Any("error", err))
		s.driftDetected("search failed")
		return nil, err
	}

	if len(records) == 0 {
		count, err := s.repo.Count(ctx)
		if err != nil {
			s.logger.Warn("failed to count users", slog.Any("error", err))
		} else if count > 0 {
			s.driftDetected("empty search result")
		}
	}

	return records, nil
}

// CheckIndexDrift compares index size with the store's user count and
// schedules a rebuild when they differ.
func (s *UserService) CheckIndexDrift(ctx context.Context) (bool, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return false, storeError(err)
	}

	size, err := s.index.Size(ctx)
	if err != nil {
		s.logger.Warn("failed to read index size", slog.Any("error", err))
		s.driftDetected("index size unavailable")
		return true, nil
	}

	if size != count {
		s.logger.Warn("search index out of sync",
			slog.Int("store_count", count),
			slog.Int("index_size", size),
		)
		s.driftDetected("size mismatch")
		return true, nil
	}

	return false, nil
}

func (s *UserService) indexWrite(op, uid string, write func() error) {
	if err := write(); err != nil {
		s.logger.Warn("search index write failed",
			slog.String("op", op),
			slog.String("user_id", uid),
			slog.Any("error", err),
		)
		s.driftDetected("index write failed")
	}
}

func (s *UserService) driftDetected(reason string) {
	s.metrics.DriftDetected()
	if s.reindexer == nil {
		return
	}
	if s.reindexer.Trigger() {
		s.logger.Info("search index rebuild scheduled", slog.String("reason", reason))
	}
}

// actorMetadata names the admin performing a change, when known
func actorMetadata(ctx context.Context) map[string]string {
	claims := internalauth.ClaimsFromContext(ctx)
	if claims == nil {
		return nil
	}
	return map[string]string{"actor": claims.Subject}
}
