// Package identity wraps the external identity provider: token verification
// on the request path, and the tenant/user admin plane used by onboarding.
package identity

import (
	"context"
	"errors"

	"github.com/tenantgate/tenantgate/pkg/models"
)

// Sentinel errors for identity-provider failures.
var (
	ErrTokenInvalid = errors.New("authentication token invalid")
	ErrTokenExpired = errors.New("authentication token expired")
	// ErrTenantMissing means the token verified but carries no tenant claim.
	// The caller is a real identity, just not tenant-scoped, so this maps to
	// forbidden rather than unauthorized.
	ErrTenantMissing       = errors.New("token not associated with a tenant")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Verifier turns raw bearer tokens into authenticated principals.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*models.Principal, error)
}

// NewUser holds the parameters for creating a user inside a tenant.
type NewUser struct {
	Email       string
	Password    string
	DisplayName string
	TenantID    string
}

// Provider is the identity provider's admin plane. Tenant ids are assigned by
// the provider; callers never generate them locally.
type Provider interface {
	CreateTenant(ctx context.Context, displayName string) (string, error)
	DeleteTenant(ctx context.Context, tenantID string) error
	CreateUser(ctx context.Context, user NewUser) (string, error)
}
