package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tenantgate/tenantgate/internal/api/response"
	"github.com/tenantgate/tenantgate/internal/identity"
)

// DefaultExemptPrefixes lists request paths that bypass authentication:
// health checks, API documentation, public routes, and the onboarding
// endpoint itself (it creates the tenant a token would be scoped to).
var DefaultExemptPrefixes = []string{
	"/health",
	"/docs",
	"/openapi.json",
	"/redoc",
	"/onboarding",
	"/public",
}

// Auth authenticates inbound requests. Per request the flow is
// unauthenticated -> exempt | authenticated | rejected: exempt paths pass
// through with credentials uninspected; everything else needs a well-formed
// Bearer token that verifies and carries a tenant claim.
type Auth struct {
	verifier identity.Verifier
	exempt   []string
}

// NewAuth creates the authentication middleware. A nil prefix list falls
// back to DefaultExemptPrefixes.
func NewAuth(v identity.Verifier, exemptPrefixes []string) *Auth {
	if exemptPrefixes == nil {
		exemptPrefixes = DefaultExemptPrefixes
	}
	return &Auth{verifier: v, exempt: exemptPrefixes}
}

// Authenticate is the middleware entrypoint.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			response.Error(w, http.StatusUnauthorized, "Authentication token not provided")
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.Error(w, http.StatusUnauthorized, "Invalid token format. Use: Bearer <token>")
			return
		}

		principal, err := a.verifier.Verify(r.Context(), parts[1])
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrTokenExpired):
				response.Error(w, http.StatusUnauthorized, "Authentication token expired")
			case errors.Is(err, identity.ErrTokenInvalid):
				response.Error(w, http.StatusUnauthorized, "Invalid authentication token")
			case errors.Is(err, identity.ErrTenantMissing):
				// The identity is real, just not tenant-scoped.
				slog.Warn("valid token without tenant claim", "path", r.URL.Path)
				response.Error(w, http.StatusForbidden, "Token not associated with a tenant")
			default:
				slog.Error("token verification failed", "error", err, "path", r.URL.Path)
				response.Error(w, http.StatusInternalServerError, "Internal error verifying authentication")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(SetPrincipal(r.Context(), principal)))
	})
}

func (a *Auth) isExempt(path string) bool {
	for _, prefix := range a.exempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
