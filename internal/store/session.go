// Package store provides tenant-scoped database access. Every query runs
// inside a session whose transaction carries the tenant discriminator, so
// row-level security filters rows independently of application query logic.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrTenantRequired is returned when a session is requested without a
	// tenant id. This is a usage error, caught before any connection is
	// acquired.
	ErrTenantRequired = errors.New("tenant id is required for a scoped session")
	ErrNotFound       = errors.New("resource not found")
	ErrDuplicateKey   = errors.New("duplicate key violation")
)

const defaultSettingName = "app.current_tenant"

// Sessions hands out tenant-bound database sessions. One session corresponds
// to one logical unit of work (an HTTP request or one workflow step) and is
// never shared across concurrent operations.
type Sessions struct {
	pool        *pgxpool.Pool
	settingName string
}

// NewSessions creates a session manager binding the given session variable.
func NewSessions(pool *pgxpool.Pool, settingName string) *Sessions {
	if settingName == "" {
		settingName = defaultSettingName
	}
	return &Sessions{pool: pool, settingName: settingName}
}

// Ping checks database connectivity.
func (s *Sessions) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithSession runs fn inside a transaction with the tenant discriminator
// bound to the session variable. The binding is transaction-local
// (set_config with is_local=true), so a pooled connection can never leak one
// tenant's binding to its next borrower even if cleanup is skipped.
//
// If fn returns an error the transaction is rolled back and that error is
// returned unchanged. On success the variable is reset best-effort and the
// transaction committed.
func (s *Sessions) WithSession(ctx context.Context, tenantID string, fn func(*Session) error) error {
	if tenantID == "" {
		return ErrTenantRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}

	if _, err := tx.Exec(ctx, `SELECT set_config($1, $2, true)`, s.settingName, tenantID); err != nil {
		rollback(ctx, tx)
		return fmt.Errorf("bind tenant discriminator: %w", err)
	}

	if err := fn(&Session{tx: tx, tenantID: tenantID}); err != nil {
		rollback(ctx, tx)
		return err
	}

	// Best-effort reset before the connection goes back to the pool. A reset
	// failure must not mask the body's outcome.
	if _, err := tx.Exec(ctx, `SELECT set_config($1, '', true)`, s.settingName); err != nil {
		slog.Warn("reset of tenant session variable failed", "setting", s.settingName, "error", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.Warn("session rollback failed", "error", err)
	}
}

// Session is a single tenant-bound unit of work. No query executes on it
// before the discriminator is bound; Sessions.WithSession guarantees that.
type Session struct {
	tx       pgx.Tx
	tenantID string
}

// TenantID returns the tenant this session is bound to.
func (s *Session) TenantID() string { return s.tenantID }

// Exec runs an arbitrary statement inside the bound transaction.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.tx.Exec(ctx, sql, args...)
}

// QueryRow runs a single-row query inside the bound transaction.
func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.tx.QueryRow(ctx, sql, args...)
}

// CurrentTenantSetting reads back the bound session variable. Mostly useful
// for diagnostics and tests.
func (s *Session) CurrentTenantSetting(ctx context.Context, settingName string) (string, error) {
	var v string
	if err := s.tx.QueryRow(ctx, `SELECT current_setting($1, true)`, settingName).Scan(&v); err != nil {
		return "", fmt.Errorf("read session setting: %w", err)
	}
	return v, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
