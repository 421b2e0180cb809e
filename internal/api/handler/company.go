package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/tenantgate/tenantgate/internal/api/middleware"
	"github.com/tenantgate/tenantgate/internal/api/response"
	"github.com/tenantgate/tenantgate/internal/store"
	"github.com/tenantgate/tenantgate/pkg/models"
)

// CompanyReader defines the interface the company handler depends on.
type CompanyReader interface {
	GetCompany(ctx context.Context, tenantID string) (*models.Company, error)
}

// NewMyCompanyHandler returns an http.HandlerFunc for GET /companies/me.
// It reads the tenant from the authenticated principal, so a caller can
// only ever see its own company row.
func NewMyCompanyHandler(svc CompanyReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := mw.GetPrincipal(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		company, err := svc.GetCompany(r.Context(), principal.TenantID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "Company not found")
				return
			}
			slog.Error("failed to load company", "tenant_id", principal.TenantID, "error", err)
			response.Error(w, http.StatusInternalServerError, "Failed to load company")
			return
		}

		response.JSON(w, company)
	}
}
