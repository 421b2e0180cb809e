// Package onboarding implements company provisioning as a compensating
// transaction across the identity provider and the database: create external
// tenant, insert the company row, create the admin user, undoing completed
// steps in reverse order when a later step fails.
package onboarding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tenantgate/tenantgate/internal/identity"
	"github.com/tenantgate/tenantgate/pkg/models"
)

// Request carries the validated onboarding input.
type Request struct {
	CompanyName        string
	CompanyDisplayName string
	CompanyDescription string
	AdminEmail         string
	AdminPassword      string
	AdminDisplayName   string
}

// Outcome is returned on success. CompanyID always equals TenantID: the row's
// identity is the external tenant id, never a locally generated key.
type Outcome struct {
	TenantID    string `json:"tenant_id"`
	CompanyID   string `json:"company_id"`
	AdminUserID string `json:"admin_user_id"`
	Message     string `json:"message"`
}

// CompanyStore is the persistence surface the workflow needs. Each call runs
// as its own tenant-bound session; DeleteCompany must tolerate an absent row.
type CompanyStore interface {
	CreateCompany(ctx context.Context, tenantID string, c *models.Company) error
	DeleteCompany(ctx context.Context, tenantID string) error
}

// Orchestrator drives the three-step provisioning saga.
type Orchestrator struct {
	provider  identity.Provider
	companies CompanyStore
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil logger falls back to the
// default slog logger.
func NewOrchestrator(provider identity.Provider, companies CompanyStore, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{provider: provider, companies: companies, logger: logger}
}

// compensation is one undo step, pushed after its forward step completes and
// executed in reverse order on failure.
type compensation struct {
	name string
	run  func(context.Context) error
}

// RegisterCompany provisions a new tenant: external tenant, company row,
// admin user. On failure at any step the completed steps are compensated in
// reverse order; compensation failures are logged and never override the
// original error. There is no idempotence: calling this twice with the same
// company name creates two distinct tenants.
func (o *Orchestrator) RegisterCompany(ctx context.Context, req Request) (out *Outcome, err error) {
	displayName := req.CompanyDisplayName
	if displayName == "" {
		displayName = req.CompanyName
	}

	var undo []compensation
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("panic during onboarding", "panic", p, "company", req.CompanyName)
			o.compensate(ctx, undo)
			out = nil
			err = fmt.Errorf("%w: unexpected failure during onboarding", identity.ErrProviderUnavailable)
		}
	}()

	// Step 1: external tenant. Nothing to compensate on failure.
	o.logger.Info("creating external tenant", "company", req.CompanyName)
	tenantID, err := o.provider.CreateTenant(ctx, displayName)
	if err != nil {
		return nil, fmt.Errorf("create external tenant: %w", err)
	}
	o.logger.Info("external tenant created", "tenant_id", tenantID)
	undo = append(undo, compensation{
		name: "delete external tenant",
		run:  func(ctx context.Context) error { return o.provider.DeleteTenant(ctx, tenantID) },
	})

	// Step 2: company row, in its own tenant-bound session.
	now := time.Now().UTC()
	company := &models.Company{
		TenantID:    tenantID,
		Name:        req.CompanyName,
		DisplayName: optional(req.CompanyDisplayName),
		Description: optional(req.CompanyDescription),
		Status:      models.CompanyStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.companies.CreateCompany(ctx, tenantID, company); err != nil {
		o.compensate(ctx, undo)
		return nil, fmt.Errorf("insert company row: %w", err)
	}
	o.logger.Info("company row inserted", "tenant_id", tenantID)
	undo = append(undo, compensation{
		name: "delete company row",
		run:  func(ctx context.Context) error { return o.companies.DeleteCompany(ctx, tenantID) },
	})

	// Step 3: admin user inside the tenant.
	adminUserID, err := o.provider.CreateUser(ctx, identity.NewUser{
		Email:       req.AdminEmail,
		Password:    req.AdminPassword,
		DisplayName: req.AdminDisplayName,
		TenantID:    tenantID,
	})
	if err != nil {
		o.compensate(ctx, undo)
		return nil, fmt.Errorf("create admin user: %w", err)
	}
	o.logger.Info("admin user created", "tenant_id", tenantID, "admin_user_id", adminUserID)

	return &Outcome{
		TenantID:    tenantID,
		CompanyID:   tenantID,
		AdminUserID: adminUserID,
		Message:     "company and admin user created successfully",
	}, nil
}

// compensate runs undo steps in reverse order. Every step is attempted even
// when an earlier one fails; failures are logged, never propagated, so the
// caller's original error always wins. A failed compensation leaves a
// dangling resource for out-of-band cleanup.
func (o *Orchestrator) compensate(ctx context.Context, undo []compensation) {
	for i := len(undo) - 1; i >= 0; i-- {
		step := undo[i]
		if err := step.run(ctx); err != nil {
			o.logger.Error("compensation step failed", "step", step.name, "error", err)
			continue
		}
		o.logger.Info("compensation step applied", "step", step.name)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
