package identity

import (
	"context"
	"errors"
	"fmt"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tenantgate/tenantgate/internal/config"
	"github.com/tenantgate/tenantgate/pkg/models"
)

// tenantClaimParent and tenantClaimField locate the tenant id inside the
// verified claims. This is a provider-specific convention (Identity Platform
// puts it under firebase.tenant), not a generic JWT field.
const (
	tenantClaimParent = "firebase"
	tenantClaimField  = "tenant"
)

// JWTVerifier validates provider-issued ID tokens against the issuer's JWKS
// and extracts the tenant binding. Signature keys are discovered via OIDC
// and auto-refreshed.
type JWTVerifier struct {
	cfg     config.IdentityConfig
	keyfunc jwt.Keyfunc
}

// NewJWTVerifier performs OIDC discovery on the configured issuer to locate
// its jwks_uri and constructs a verifier bound to the issuer and audience.
func NewJWTVerifier(ctx context.Context, cfg config.IdentityConfig) (*JWTVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}

	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return nil, fmt.Errorf("discovery incomplete: missing jwks_uri")
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{meta.JwksURI})
	if err != nil {
		return nil, fmt.Errorf("jwks init failed: %w", err)
	}

	return &JWTVerifier{cfg: cfg, keyfunc: kf.Keyfunc}, nil
}

// Verify checks the token's signature, issuer, audience and expiry, then
// derives a Principal from its claims.
func (v *JWTVerifier) Verify(_ context.Context, rawToken string) (*models.Principal, error) {
	if rawToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithLeeway(v.cfg.Leeway),
	)

	parsed, err := parser.Parse(rawToken, v.keyfunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrTokenInvalid)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrTokenInvalid)
	}
	email, _ := claims["email"].(string)

	tenantID := tenantClaim(claims)
	if tenantID == "" {
		return nil, ErrTenantMissing
	}

	return &models.Principal{UserID: sub, Email: email, TenantID: tenantID}, nil
}

func tenantClaim(claims jwt.MapClaims) string {
	parent, ok := claims[tenantClaimParent].(map[string]any)
	if !ok {
		return ""
	}
	tenant, _ := parent[tenantClaimField].(string)
	return tenant
}

var _ Verifier = (*JWTVerifier)(nil)
