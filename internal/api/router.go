package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/tenantgate/tenantgate/internal/api/middleware"
	"github.com/tenantgate/tenantgate/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit func(http.Handler) http.Handler
	CORS      func(http.Handler) http.Handler

	RootHandler       http.HandlerFunc
	HealthHandler     http.HandlerFunc
	OnboardingHandler http.HandlerFunc
	MyCompanyHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
// Authentication runs globally; the Auth middleware itself skips exempt
// prefixes so public routes stay reachable without a token.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	if deps.CORS != nil {
		r.Use(deps.CORS)
	}
	r.Use(deps.Auth.Authenticate)

	r.Get("/", orNotImplemented(deps.RootHandler))
	r.Get("/health", orNotImplemented(deps.HealthHandler))

	// Public onboarding, rate limited per client IP.
	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit)
		}
		r.Post("/onboarding/register-company", orNotImplemented(deps.OnboardingHandler))
	})

	// Authenticated routes
	r.Get("/companies/me", orNotImplemented(deps.MyCompanyHandler))

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "Endpoint not yet implemented")
	}
}
