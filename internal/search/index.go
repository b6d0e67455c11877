// Package search maintains the secondary user index. The index is a
// projection of the credential store and is never used for authentication.
package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/database/migrations"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const DefaultSearchLimit = 100

var indexColumns = []string{
	"uid", "username", "username_lower", "first_name", "last_name", "email", "cell_phone", "person_ref",
}

// Index is a SQLite backed user index
type Index struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// Open opens (or creates) the index at dsn and applies its schema
func Open(ctx context.Context, dsn string) (*Index, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", models.ErrIndex, err)
	}

	// SQLite allows a single writer, and an in-memory database exists per connection
	db.SetMaxOpenConns(1)

	idx, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

// New wraps an open database and applies the index schema
func New(ctx context.Context, db *sql.DB) (*Index, error) {
	fsys, err := migrations.SQLite()
	if err != nil {
		return nil, err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("%w: migration provider: %w", models.ErrIndex, err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return nil, fmt.Errorf("%w: migrate: %w", models.ErrIndex, err)
	}

	return &Index{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

func (i *Index) Close() error {
	return i.db.Close()
}

func recordValues(r models.IndexRecord) []interface{} {
	return []interface{}{
		r.UID, r.Username, strings.ToLower(r.Username),
		r.FirstName, r.LastName, r.Email, r.CellPhone, r.PersonRef,
	}
}

func (i *Index) upsert(ctx context.Context, runner sq.BaseRunner, records []models.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}

	insert := i.builder.Insert("user_index").Columns(indexColumns...)
	for _, r := range records {
		if r.UID == "" {
			return fmt.Errorf("%w: record without uid", models.ErrIndex)
		}
		insert = insert.Values(recordValues(r)...)
	}
	insert = insert.Suffix(`ON CONFLICT(uid) DO UPDATE SET
		username = excluded.username,
		username_lower = excluded.username_lower,
		first_name = excluded.first_name,
		last_name = excluded.last_name,
		email = excluded.email,
		cell_phone = excluded.cell_phone,
		person_ref = excluded.person_ref`)

	if _, err := insert.RunWith(runner).ExecContext(ctx); err != nil {
		return fmt.Errorf("%w: upsert: %w", models.ErrIndex, err)
	}
	return nil
}

// Add indexes one record, replacing any record with the same uid
func (i *Index) Add(ctx context.Context, record models.IndexRecord) error {
	return i.upsert(ctx, i.db, []models.IndexRecord{record})
}

// AddBatch indexes records in one transaction
func (i *Index) AddBatch(ctx context.Context, records []models.IndexRecord) error {
	return i.inTx(ctx, func(tx *sql.Tx) error {
		return i.addBatch(ctx, tx, records)
	})
}

// batchSize keeps each statement below SQLite's bound-parameter limit
const batchSize = 200

func (i *Index) addBatch(ctx context.Context, tx *sql.Tx, records []models.IndexRecord) error {
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		if err := i.upsert(ctx, tx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// Update rewrites the record with the same uid
func (i *Index) Update(ctx context.Context, record models.IndexRecord) error {
	return i.Add(ctx, record)
}

// Remove drops the record for uid. Removing an absent uid is not an error.
func (i *Index) Remove(ctx context.Context, uid string) error {
	_, err := i.builder.Delete("user_index").Where(sq.Eq{"uid": uid}).RunWith(i.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: remove: %w", models.ErrIndex, err)
	}
	return nil
}

// Rebuild replaces the whole index with records in one transaction
func (i *Index) Rebuild(ctx context.Context, records []models.IndexRecord) error {
	return i.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := i.builder.Delete("user_index").RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("%w: clear: %w", models.ErrIndex, err)
		}
		return i.addBatch(ctx, tx, records)
	})
}

// Exists compares usernames case-insensitively
func (i *Index) Exists(ctx context.Context, username string) (bool, error) {
	var one int
	err := i.builder.Select("1").From("user_index").
		Where(sq.Eq{"username_lower": strings.ToLower(strings.TrimSpace(username))}).
		Limit(1).
		RunWith(i.db).QueryRowContext(ctx).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: exists: %w", models.ErrIndex, err)
	}
	return true, nil
}

// Size returns the number of indexed records
func (i *Index) Size(ctx context.Context) (int, error) {
	var count int
	err := i.builder.Select("count(*)").From("user_index").RunWith(i.db).QueryRowContext(ctx).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: size: %w", models.ErrIndex, err)
	}
	return count, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Search matches query as a case-insensitive substring of the username,
// names, email or cell phone. An empty query matches everything.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]models.IndexRecord, error) {
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}

	stmt := i.builder.
		Select("uid", "username", "first_name", "last_name", "email", "cell_phone", "person_ref").
		From("user_index").
		OrderBy("username_lower").
		Limit(uint64(limit))

	if query = strings.ToLower(strings.TrimSpace(query)); query != "" {
		pattern := "%" + escapeLike(query) + "%"
		like := func(column string) sq.Sqlizer {
			return sq.Expr("lower("+column+") LIKE ? ESCAPE '\\'", pattern)
		}
		stmt = stmt.Where(sq.Or{
			like("username"),
			like("first_name"),
			like("last_name"),
			like("email"),
			like("cell_phone"),
		})
	}

	rows, err := stmt.RunWith(i.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", models.ErrIndex, err)
	}
	defer rows.Close()

	records := make([]models.IndexRecord, 0)
	for rows.Next() {
		var r models.IndexRecord
		if err := rows.Scan(&r.UID, &r.Username, &r.FirstName, &r.LastName, &r.Email, &r.CellPhone, &r.PersonRef); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", models.ErrIndex, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: search: %w", models.ErrIndex, err)
	}

	return records, nil
}

func (i *Index) inTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", models.ErrIndex, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return err
}
