// Package fake provides in-memory identity-provider doubles for tests and
// local development.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tenantgate/tenantgate/internal/identity"
	"github.com/tenantgate/tenantgate/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// User is a provisioned fake user.
type User struct {
	UID          string
	Email        string
	PasswordHash string
	DisplayName  string
	TenantID     string
}

// Provider satisfies identity.Provider with in-memory state. Tenant and user
// ids are generated; passwords are stored bcrypt-hashed like the real
// provider would. Error fields inject failures per operation.
type Provider struct {
	mu      sync.Mutex
	tenants map[string]string // tenant id -> display name
	users   map[string]User   // uid -> user

	CreateTenantErr error
	DeleteTenantErr error
	CreateUserErr   error

	DeletedTenants []string
}

// NewProvider returns an empty fake provider.
func NewProvider() *Provider {
	return &Provider{
		tenants: make(map[string]string),
		users:   make(map[string]User),
	}
}

func (p *Provider) CreateTenant(_ context.Context, displayName string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.CreateTenantErr != nil {
		return "", p.CreateTenantErr
	}
	tenantID := "t-" + uuid.NewString()[:13]
	p.tenants[tenantID] = displayName
	return tenantID, nil
}

func (p *Provider) DeleteTenant(_ context.Context, tenantID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.DeleteTenantErr != nil {
		return p.DeleteTenantErr
	}
	if _, ok := p.tenants[tenantID]; !ok {
		return fmt.Errorf("%w: tenant %s not found", identity.ErrProviderUnavailable, tenantID)
	}
	delete(p.tenants, tenantID)
	p.DeletedTenants = append(p.DeletedTenants, tenantID)
	return nil
}

func (p *Provider) CreateUser(_ context.Context, user identity.NewUser) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.CreateUserErr != nil {
		return "", p.CreateUserErr
	}
	if _, ok := p.tenants[user.TenantID]; !ok {
		return "", fmt.Errorf("%w: tenant %s not found", identity.ErrProviderUnavailable, user.TenantID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	uid := uuid.NewString()
	p.users[uid] = User{
		UID:          uid,
		Email:        user.Email,
		PasswordHash: string(hash),
		DisplayName:  user.DisplayName,
		TenantID:     user.TenantID,
	}
	return uid, nil
}

// HasTenant reports whether a tenant currently exists.
func (p *Provider) HasTenant(tenantID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tenants[tenantID]
	return ok
}

// UserCount returns the number of provisioned users.
func (p *Provider) UserCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.users)
}

// CheckPassword verifies a stored user password, mirroring a login check.
func (p *Provider) CheckPassword(uid, password string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[uid]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Verifier satisfies identity.Verifier with a static token table.
type Verifier struct {
	// Principals maps raw tokens to the principal they authenticate.
	Principals map[string]*models.Principal
	// Err, when set, is returned for any token not in Principals.
	Err error

	mu    sync.Mutex
	calls int
}

func (v *Verifier) Verify(_ context.Context, rawToken string) (*models.Principal, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()

	if p, ok := v.Principals[rawToken]; ok {
		return p, nil
	}
	if v.Err != nil {
		return nil, v.Err
	}
	return nil, identity.ErrTokenInvalid
}

// Calls returns how many times Verify was invoked.
func (v *Verifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

var (
	_ identity.Provider = (*Provider)(nil)
	_ identity.Verifier = (*Verifier)(nil)
)
