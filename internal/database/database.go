// Package database handles database connections and migrations.
package database

import (
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/vietcms/moderation/internal/database/migrations"
)

// New opens a Postgres connection pool via the pgx stdlib driver and
// verifies it with a ping.
func New(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate runs database migrations.
func Migrate(db *sqlx.DB) error {
	return MigrateWithLogger(db, nil)
}

// MigrateWithLogger runs database migrations with a custom logger.
func MigrateWithLogger(db *sqlx.DB, logger *slog.Logger) error {
	return migrations.Run(db.DB, logger)
}

// GetAppliedMigrations returns information about applied migrations.
func GetAppliedMigrations(db *sqlx.DB) ([]migrations.AppliedMigration, error) {
	return migrations.GetAppliedMigrations(db.DB)
}

// GetPendingMigrations returns migrations that haven't been applied yet.
func GetPendingMigrations(db *sqlx.DB) ([]migrations.Migration, error) {
	return migrations.GetPendingMigrations(db.DB)
}
