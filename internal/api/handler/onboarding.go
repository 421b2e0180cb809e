package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tenantgate/tenantgate/internal/api/response"
	"github.com/tenantgate/tenantgate/internal/onboarding"
)

const (
	maxNameLength     = 255
	minPasswordLength = 8
)

// Registrar defines the interface the onboarding handler depends on.
type Registrar interface {
	RegisterCompany(ctx context.Context, req onboarding.Request) (*onboarding.Outcome, error)
}

// NewOnboardingHandler returns an http.HandlerFunc for
// POST /onboarding/register-company.
func NewOnboardingHandler(svc Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CompanyName        string `json:"company_name"`
			CompanyDisplayName string `json:"company_display_name"`
			CompanyDescription string `json:"company_description"`
			AdminUser          struct {
				Email       string `json:"email"`
				Password    string `json:"password"`
				DisplayName string `json:"display_name"`
			} `json:"admin_user"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		req.CompanyName = strings.TrimSpace(req.CompanyName)
		if req.CompanyName == "" {
			response.Error(w, http.StatusBadRequest, "company_name is required")
			return
		}
		if len(req.CompanyName) > maxNameLength {
			response.Error(w, http.StatusBadRequest, "company_name must be at most 255 characters")
			return
		}
		if len(req.CompanyDisplayName) > maxNameLength {
			response.Error(w, http.StatusBadRequest, "company_display_name must be at most 255 characters")
			return
		}

		email := strings.TrimSpace(req.AdminUser.Email)
		if email == "" {
			response.Error(w, http.StatusBadRequest, "admin_user.email is required")
			return
		}
		if !validEmail(email) {
			response.Error(w, http.StatusBadRequest, "admin_user.email must be a valid email address")
			return
		}
		if len(req.AdminUser.Password) < minPasswordLength {
			response.Error(w, http.StatusBadRequest, "admin_user.password must be at least 8 characters")
			return
		}
		if len(req.AdminUser.DisplayName) > maxNameLength {
			response.Error(w, http.StatusBadRequest, "admin_user.display_name must be at most 255 characters")
			return
		}

		outcome, err := svc.RegisterCompany(r.Context(), onboarding.Request{
			CompanyName:        req.CompanyName,
			CompanyDisplayName: req.CompanyDisplayName,
			CompanyDescription: req.CompanyDescription,
			AdminEmail:         email,
			AdminPassword:      req.AdminUser.Password,
			AdminDisplayName:   req.AdminUser.DisplayName,
		})
		if err != nil {
			slog.Error("company registration failed", "company", req.CompanyName, "error", err)
			response.Error(w, http.StatusInternalServerError, "Failed to register company")
			return
		}

		response.Created(w, outcome)
	}
}

// validEmail applies a minimal shape check. Real verification happens when
// the identity provider creates the account.
func validEmail(s string) bool {
	at := strings.Index(s, "@")
	if at < 1 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(s, " \t\n")
}
