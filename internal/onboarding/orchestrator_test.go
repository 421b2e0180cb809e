package onboarding_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantgate/tenantgate/internal/identity"
	"github.com/tenantgate/tenantgate/internal/onboarding"
	"github.com/tenantgate/tenantgate/pkg/models"
)

// eventLog records the order of provider and store operations across both
// fakes, so compensation ordering can be asserted.
type eventLog struct {
	events []string
}

func (l *eventLog) add(e string) { l.events = append(l.events, e) }

type fakeProvider struct {
	log *eventLog

	createTenantErr error
	deleteTenantErr error
	createUserErr   error

	tenantID string
	userID   string
}

func (p *fakeProvider) CreateTenant(_ context.Context, _ string) (string, error) {
	if p.createTenantErr != nil {
		p.log.add("create-tenant-failed")
		return "", p.createTenantErr
	}
	p.log.add("create-tenant")
	return p.tenantID, nil
}

func (p *fakeProvider) DeleteTenant(_ context.Context, tenantID string) error {
	if p.deleteTenantErr != nil {
		p.log.add("delete-tenant-failed")
		return p.deleteTenantErr
	}
	p.log.add("delete-tenant:" + tenantID)
	return nil
}

func (p *fakeProvider) CreateUser(_ context.Context, _ identity.NewUser) (string, error) {
	if p.createUserErr != nil {
		p.log.add("create-user-failed")
		return "", p.createUserErr
	}
	p.log.add("create-user")
	return p.userID, nil
}

type fakeStore struct {
	log *eventLog

	createErr error
	deleteErr error

	inserted *models.Company
}

func (s *fakeStore) CreateCompany(_ context.Context, tenantID string, c *models.Company) error {
	if s.createErr != nil {
		s.log.add("insert-row-failed")
		return s.createErr
	}
	s.log.add("insert-row:" + tenantID)
	s.inserted = c
	return nil
}

func (s *fakeStore) DeleteCompany(_ context.Context, tenantID string) error {
	if s.deleteErr != nil {
		s.log.add("delete-row-failed")
		return s.deleteErr
	}
	s.log.add("delete-row:" + tenantID)
	return nil
}

func newFixture() (*fakeProvider, *fakeStore, *onboarding.Orchestrator) {
	log := &eventLog{}
	provider := &fakeProvider{log: log, tenantID: "t-123", userID: "u-456"}
	store := &fakeStore{log: log}
	orch := onboarding.NewOrchestrator(provider, store, slog.Default())
	return provider, store, orch
}

func validRequest() onboarding.Request {
	return onboarding.Request{
		CompanyName:        "acme",
		CompanyDisplayName: "Acme Corp",
		AdminEmail:         "admin@acme.example.com",
		AdminPassword:      "s3cretpass",
		AdminDisplayName:   "Acme Admin",
	}
}

func TestRegisterCompany_Success(t *testing.T) {
	provider, store, orch := newFixture()

	out, err := orch.RegisterCompany(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "t-123", out.TenantID)
	assert.Equal(t, out.TenantID, out.CompanyID)
	assert.Equal(t, "u-456", out.AdminUserID)
	assert.Equal(t, "company and admin user created successfully", out.Message)

	assert.Equal(t,
		[]string{"create-tenant", "insert-row:t-123", "create-user"},
		provider.log.events)

	require.NotNil(t, store.inserted)
	assert.Equal(t, "t-123", store.inserted.TenantID)
	assert.Equal(t, "acme", store.inserted.Name)
	require.NotNil(t, store.inserted.DisplayName)
	assert.Equal(t, "Acme Corp", *store.inserted.DisplayName)
	assert.Equal(t, models.CompanyStatusActive, store.inserted.Status)
}

func TestRegisterCompany_DisplayNameFallsBackToName(t *testing.T) {
	_, store, orch := newFixture()

	req := validRequest()
	req.CompanyDisplayName = ""

	_, err := orch.RegisterCompany(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, store.inserted)
	assert.Nil(t, store.inserted.DisplayName)
	assert.Nil(t, store.inserted.Description)
}

func TestRegisterCompany_TenantCreationFails(t *testing.T) {
	provider, _, orch := newFixture()
	provider.createTenantErr = identity.ErrProviderUnavailable

	_, err := orch.RegisterCompany(context.Background(), validRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "create external tenant")

	// Nothing completed, so nothing may be undone.
	assert.Equal(t, []string{"create-tenant-failed"}, provider.log.events)
}

func TestRegisterCompany_RowInsertFailsCompensatesTenant(t *testing.T) {
	provider, store, orch := newFixture()
	store.createErr = errors.New("insert blew up")

	_, err := orch.RegisterCompany(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert company row")

	assert.Equal(t,
		[]string{"create-tenant", "insert-row-failed", "delete-tenant:t-123"},
		provider.log.events)
}

func TestRegisterCompany_UserCreationFailsCompensatesInReverseOrder(t *testing.T) {
	provider, _, orch := newFixture()
	provider.createUserErr = identity.ErrProviderUnavailable

	_, err := orch.RegisterCompany(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create admin user")

	// Row delete must precede tenant delete.
	assert.Equal(t,
		[]string{
			"create-tenant",
			"insert-row:t-123",
			"create-user-failed",
			"delete-row:t-123",
			"delete-tenant:t-123",
		},
		provider.log.events)
}

func TestRegisterCompany_CompensationFailureDoesNotMaskOriginalError(t *testing.T) {
	provider, store, orch := newFixture()
	stepErr := errors.New("user creation failed")
	provider.createUserErr = stepErr
	store.deleteErr = errors.New("row delete failed too")

	_, err := orch.RegisterCompany(context.Background(), validRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, stepErr)

	// The failed row delete must not stop the tenant delete.
	assert.Equal(t,
		[]string{
			"create-tenant",
			"insert-row:t-123",
			"create-user-failed",
			"delete-row-failed",
			"delete-tenant:t-123",
		},
		provider.log.events)
}

func TestRegisterCompany_NoIdempotence(t *testing.T) {
	log := &eventLog{}
	provider := &fakeProvider{log: log, tenantID: "t-first", userID: "u-1"}
	store := &fakeStore{log: log}
	orch := onboarding.NewOrchestrator(provider, store, slog.Default())

	first, err := orch.RegisterCompany(context.Background(), validRequest())
	require.NoError(t, err)

	provider.tenantID = "t-second"
	second, err := orch.RegisterCompany(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEqual(t, first.TenantID, second.TenantID)
}
