package middleware

import (
	"context"
	"net/http"

	"github.com/tenantgate/tenantgate/pkg/models"
)

type contextKey string

const principalKey contextKey = "principal"

// SetPrincipal attaches the authenticated principal to the context and
// stamps its tenant onto the access log for this request.
func SetPrincipal(ctx context.Context, p *models.Principal) context.Context {
	stampTenant(ctx, p.TenantID)
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal extracts the authenticated principal from the request, if any.
func GetPrincipal(r *http.Request) (*models.Principal, bool) {
	p, ok := r.Context().Value(principalKey).(*models.Principal)
	return p, ok
}
