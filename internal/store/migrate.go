package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations applies all pending schema migrations from dir, including the
// row-level-security policies on tenant-scoped tables.
func RunMigrations(databaseURL, dir string) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// VerifyTenantColumn checks that the configured tenant discriminator column
// exists on the companies table, catching config/schema drift at startup
// instead of at first query.
func VerifyTenantColumn(ctx context.Context, pool *pgxpool.Pool, column string) error {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'companies' AND column_name = $1
		)`, column).Scan(&exists)
	if err != nil {
		return fmt.Errorf("verify tenant column: %w", err)
	}
	if !exists {
		return fmt.Errorf("companies table has no %q column; TENANT_ID_COLUMN does not match the schema", column)
	}
	return nil
}
