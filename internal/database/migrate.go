package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/config"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/database/migrations"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// Migrate applies the embedded PostgreSQL migrations
func Migrate(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("unable to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	return MigrateDB(ctx, sqlDB, logger)
}

// MigrateDB applies the embedded PostgreSQL migrations on an open connection
func MigrateDB(ctx context.Context, sqlDB *sql.DB, logger *slog.Logger) error {
	fsys, err := migrations.Postgres()
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("unable to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	for _, r := range results {
		logger.Info("migration applied",
			slog.String("source", r.Source.Path),
			slog.String("duration", r.Duration.String()),
		)
	}

	return nil
}
