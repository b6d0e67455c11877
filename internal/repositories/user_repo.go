package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/database"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgExecutor is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository is the credential store backed by PostgreSQL
type UserRepository struct {
	exec pgExecutor
	now  func() time.Time
}

func NewUserRepository(db *database.DB) *UserRepository {
	return NewUserRepositoryWithExecutor(db.Pool)
}

// NewUserRepositoryWithExecutor builds a repository on any pgx executor
func NewUserRepositoryWithExecutor(exec pgExecutor) *UserRepository {
	return &UserRepository{exec: exec, now: time.Now}
}

const userColumns = `uid, username, first_name, last_name, email, cell_phone, person_ref, password_hash, legacy_hash, created_at, updated_at`

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var passwordHash, legacyHash *string

	err := scanner.Scan(
		&user.UID, &user.Username, &user.FirstName, &user.LastName,
		&user.Email, &user.CellPhone, &user.PersonRef,
		&passwordHash, &legacyHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	if legacyHash != nil {
		user.LegacyHash = *legacyHash
	}

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return users, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *UserRepository) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM user_identities WHERE uid = $1`

	return scanUserRow(r.exec.QueryRow(ctx, query, uid))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM user_identities WHERE lower(username) = lower($1)`

	return scanUserRow(r.exec.QueryRow(ctx, query, strings.TrimSpace(username)))
}

// UsernameExists compares usernames case-insensitively
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_identities WHERE lower(username) = lower($1))`

	var exists bool
	if err := r.exec.QueryRow(ctx, query, strings.TrimSpace(username)).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

// List returns users ordered by uid, which keeps paging stable
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM user_identities ORDER BY uid LIMIT $1 OFFSET $2`

	rows, err := r.exec.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.exec.QueryRow(ctx, `SELECT count(*) FROM user_identities`).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// Create inserts user, assigning a uid when none is set
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.UID == "" {
		user.UID = uuid.New().String()
	}

	now := r.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO user_identities (uid, username, first_name, last_name, email, cell_phone, person_ref, password_hash, legacy_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + userColumns

	return scanUserRow(r.exec.QueryRow(ctx, query,
		user.UID, user.Username, user.FirstName, user.LastName,
		user.Email, user.CellPhone, user.PersonRef,
		nullable(user.PasswordHash), nullable(user.LegacyHash),
		user.CreatedAt, user.UpdatedAt,
	))
}

// Update writes profile fields only. The uid and credentials are left alone.
func (r *UserRepository) Update(ctx context.Context, uid string, user *models.User) (*models.User, error) {
	user.UpdatedAt = r.now().UTC()

	query := `
		UPDATE user_identities
		SET username = $1, first_name = $2, last_name = $3, email = $4, cell_phone = $5, person_ref = $6, updated_at = $7
		WHERE uid = $8
		RETURNING ` + userColumns

	return scanUserRow(r.exec.QueryRow(ctx, query,
		user.Username, user.FirstName, user.LastName, user.Email,
		user.CellPhone, user.PersonRef, user.UpdatedAt, uid,
	))
}

// UpdatePasswordHash replaces the password slot and drops any legacy hash
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, uid, passwordHash string) error {
	query := `UPDATE user_identities SET password_hash = $1, legacy_hash = NULL, updated_at = $2 WHERE uid = $3`

	result, err := r.exec.Exec(ctx, query, nullable(passwordHash), r.now().UTC(), uid)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// SwapPasswordHash replaces the password slot only while it still holds
// current. It returns models.ErrConflict when another write got there
// first, which makes reset placeholders single-use.
func (r *UserRepository) SwapPasswordHash(ctx context.Context, uid, current, passwordHash string) error {
	query := `UPDATE user_identities SET password_hash = $1, legacy_hash = NULL, updated_at = $2 WHERE uid = $3 AND password_hash = $4`

	result, err := r.exec.Exec(ctx, query, nullable(passwordHash), r.now().UTC(), uid, current)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrConflict
	}

	return nil
}

func (r *UserRepository) Delete(ctx context.Context, uid string) error {
	query := `DELETE FROM user_identities WHERE uid = $1`

	result, err := r.exec.Exec(ctx, query, uid)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
