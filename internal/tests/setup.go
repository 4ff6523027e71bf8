package tests

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ogevents/server/internal/db"
	"go.uber.org/zap"
)

// RunMigrations applies the embedded migrations to the test database.
func RunMigrations(database *sql.DB) error {
	if err := db.Migrate(database, zap.NewNop()); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// TruncateAuthTables truncates auth-related tables for a clean test state.
func TruncateAuthTables(ctx context.Context, database *sql.DB) error {
	_, err := database.ExecContext(ctx, "TRUNCATE TABLE otps, users RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate auth tables: %w", err)
	}
	return nil
}
