package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mw "github.com/tenantgate/tenantgate/internal/api/middleware"
	"github.com/tenantgate/tenantgate/internal/identity"
	"github.com/tenantgate/tenantgate/internal/identity/fake"
	"github.com/tenantgate/tenantgate/pkg/models"
)

var testPrincipal = &models.Principal{
	UserID:   "user-123",
	Email:    "admin@acme.example.com",
	TenantID: "tenant-abc",
}

// authStack wires the middleware around a handler that records whether it ran
// and what principal it saw.
func authStack(verifier *fake.Verifier) (http.Handler, *int, **models.Principal) {
	calls := 0
	var seen *models.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		seen, _ = mw.GetPrincipal(r)
		w.WriteHeader(http.StatusOK)
	})
	return mw.NewAuth(verifier, nil).Authenticate(next), &calls, &seen
}

func errorDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestAuthenticate_ValidToken(t *testing.T) {
	verifier := &fake.Verifier{Principals: map[string]*models.Principal{
		"good-token": testPrincipal,
	}}
	h, calls, seen := authStack(verifier)

	req := httptest.NewRequest(http.MethodGet, "/companies/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *calls)
	require.NotNil(t, *seen)
	assert.Equal(t, "tenant-abc", (*seen).TenantID)
}

func TestAuthenticate_ExemptPathSkipsVerifier(t *testing.T) {
	verifier := &fake.Verifier{}
	h, calls, _ := authStack(verifier)

	for _, path := range []string{"/health", "/docs/index.html", "/openapi.json", "/redoc", "/onboarding/register-company", "/public/pricing"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	assert.Equal(t, 6, *calls)
	assert.Equal(t, 0, verifier.Calls())
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	h, calls, _ := authStack(&fake.Verifier{})

	req := httptest.NewRequest(http.MethodGet, "/companies/me", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication token not provided", errorDetail(t, rec))
	assert.Equal(t, 0, *calls)
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	verifier := &fake.Verifier{}
	h, calls, _ := authStack(verifier)

	for _, header := range []string{"token-without-scheme", "Basic dXNlcjpwYXNz", "Bearer one two"} {
		req := httptest.NewRequest(http.MethodGet, "/companies/me", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, "Invalid token format. Use: Bearer <token>", errorDetail(t, rec))
	}

	assert.Equal(t, 0, *calls)
	assert.Equal(t, 0, verifier.Calls())
}

func TestAuthenticate_BearerSchemeIsCaseInsensitive(t *testing.T) {
	verifier := &fake.Verifier{Principals: map[string]*models.Principal{
		"good-token": testPrincipal,
	}}
	h, _, _ := authStack(verifier)

	req := httptest.NewRequest(http.MethodGet, "/companies/me", nil)
	req.Header.Set("Authorization", "bearer good-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	h, calls, _ := authStack(&fake.Verifier{Err: identity.ErrTokenExpired})

	req := httptest.NewRequest(http.MethodGet, "/companies/me", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication token expired", errorDetail(t, rec))
	assert.Equal(t, 0, *calls)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	h, calls, _ := authStack(&fake.Verifier{Err: identity.ErrTokenInvalid})

	req := httptest.NewRequest(http.MethodGet, "/companies/me", nil)
	req.Header.Set("Authorization", "Bearer bogus-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid authentication token", errorDetail(t, rec))
	assert.Equal(t, 0, *calls)
}

func TestAuthenticate_TokenWithoutTenant(t *testing.T) {
	h, calls, _ := authStack(&fake.Verifier{Err: identity.ErrTenantMissing})

	req := httptest.NewRequest(http.MethodGet, "/companies/me", nil)
	req.Header.Set("Authorization", "Bearer tenantless-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Token not associated with a tenant", errorDetail(t, rec))
	assert.Equal(t, 0, *calls)
}

func TestAuthenticate_UnexpectedVerifierError(t *testing.T) {
	h, calls, _ := authStack(&fake.Verifier{Err: errors.New("jwks fetch timed out")})

	req := httptest.NewRequest(http.MethodGet, "/companies/me", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal error verifying authentication", errorDetail(t, rec))
	assert.Equal(t, 0, *calls)
}

func TestAuthenticate_CustomExemptPrefixes(t *testing.T) {
	verifier := &fake.Verifier{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := mw.NewAuth(verifier, []string{"/status"}).Authenticate(next)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Default exemptions no longer apply.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetPrincipal_AbsentFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/companies/me", nil)
	p, ok := mw.GetPrincipal(req)
	assert.False(t, ok)
	assert.Nil(t, p)
}
