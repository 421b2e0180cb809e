package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tenantgate/tenantgate/pkg/models"
)

// --- Session-level row operations ---

// InsertCompany persists a company row in the bound tenant's scope.
func (s *Session) InsertCompany(ctx context.Context, c *models.Company) error {
	_, err := s.tx.Exec(ctx,
		`INSERT INTO companies (tenant_id, name, display_name, description, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.TenantID, c.Name, c.DisplayName, c.Description, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// GetCompany fetches the bound tenant's company row.
func (s *Session) GetCompany(ctx context.Context) (*models.Company, error) {
	var c models.Company
	err := s.tx.QueryRow(ctx,
		`SELECT tenant_id, name, display_name, description, status, created_at, updated_at
		 FROM companies WHERE tenant_id = $1`, s.tenantID,
	).Scan(&c.TenantID, &c.Name, &c.DisplayName, &c.Description, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

// DeleteCompany removes the bound tenant's company row. Returns true when a
// row was deleted, false when none existed.
func (s *Session) DeleteCompany(ctx context.Context) (bool, error) {
	tag, err := s.tx.Exec(ctx, `DELETE FROM companies WHERE tenant_id = $1`, s.tenantID)
	if err != nil {
		return false, fmt.Errorf("delete company: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// --- CompanyService: one session per operation ---

// CompanyService exposes company persistence as one tenant-bound session per
// call, which is the granularity the onboarding workflow compensates at.
type CompanyService struct {
	sessions *Sessions
}

// NewCompanyService creates a CompanyService on top of a session manager.
func NewCompanyService(sessions *Sessions) *CompanyService {
	return &CompanyService{sessions: sessions}
}

// CreateCompany inserts a company row in a fresh tenant-bound session.
func (s *CompanyService) CreateCompany(ctx context.Context, tenantID string, c *models.Company) error {
	return s.sessions.WithSession(ctx, tenantID, func(sess *Session) error {
		return sess.InsertCompany(ctx, c)
	})
}

// GetCompany fetches the tenant's company row in a fresh session.
func (s *CompanyService) GetCompany(ctx context.Context, tenantID string) (*models.Company, error) {
	var c *models.Company
	err := s.sessions.WithSession(ctx, tenantID, func(sess *Session) error {
		var err error
		c, err = sess.GetCompany(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCompany removes the tenant's company row if present. Absence is not
// an error: compensation paths call this without knowing whether the row
// insert ever happened.
func (s *CompanyService) DeleteCompany(ctx context.Context, tenantID string) error {
	return s.sessions.WithSession(ctx, tenantID, func(sess *Session) error {
		_, err := sess.DeleteCompany(ctx)
		return err
	})
}
