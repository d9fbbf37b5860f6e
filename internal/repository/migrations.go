package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

var gooseMu sync.Mutex

func migrationSource(dialect Dialect) (gooseDialect, dir string) {
	if dialect == DialectSQLite {
		return "sqlite3", "migrations/sqlite"
	}
	return "postgres", "migrations/postgres"
}

// ApplyMigrations runs the embedded migrations for the dialect
func ApplyMigrations(ctx context.Context, db *sql.DB, dialect Dialect) error {
	gooseDialect, dir := migrationSource(dialect)

	gooseMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
