package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tenantgate/tenantgate/internal/config"
	"github.com/tenantgate/tenantgate/internal/credentials"
)

const (
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	adminScope     = "https://www.googleapis.com/auth/identitytoolkit"

	// access tokens are refreshed this long before they expire
	tokenExpirySlack = time.Minute
)

// AdminClient implements Provider against the identity platform's admin REST
// API. Requests are authenticated with an OAuth2 access token minted from the
// resolved service-account credentials via the JWT-bearer grant.
type AdminClient struct {
	baseURL string
	creds   *credentials.Provider
	client  *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewAdminClient creates a new admin-plane client.
func NewAdminClient(cfg config.IdentityConfig, creds *credentials.Provider) *AdminClient {
	return &AdminClient{
		baseURL: strings.TrimRight(cfg.AdminBaseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateTenant provisions a new tenant and returns its provider-assigned id.
func (c *AdminClient) CreateTenant(ctx context.Context, displayName string) (string, error) {
	material, err := c.creds.Resolve(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{"displayName": displayName}
	var resp struct {
		Name string `json:"name"` // projects/<project>/tenants/<id>
	}
	u := fmt.Sprintf("%s/v2/projects/%s/tenants", c.baseURL, url.PathEscape(material.ProjectID))
	if err := c.do(ctx, http.MethodPost, u, body, &resp); err != nil {
		return "", fmt.Errorf("create tenant: %w", err)
	}

	tenantID := path.Base(resp.Name)
	if tenantID == "" || tenantID == "." {
		return "", fmt.Errorf("%w: create tenant: empty tenant name in response", ErrProviderUnavailable)
	}
	return tenantID, nil
}

// DeleteTenant removes a tenant from the provider.
func (c *AdminClient) DeleteTenant(ctx context.Context, tenantID string) error {
	material, err := c.creds.Resolve(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/v2/projects/%s/tenants/%s",
		c.baseURL, url.PathEscape(material.ProjectID), url.PathEscape(tenantID))
	if err := c.do(ctx, http.MethodDelete, u, nil, nil); err != nil {
		return fmt.Errorf("delete tenant %s: %w", tenantID, err)
	}
	return nil
}

// CreateUser creates a user scoped to a tenant and returns its uid.
func (c *AdminClient) CreateUser(ctx context.Context, user NewUser) (string, error) {
	material, err := c.creds.Resolve(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"email":    user.Email,
		"password": user.Password,
	}
	if user.DisplayName != "" {
		body["displayName"] = user.DisplayName
	}
	var resp struct {
		LocalID string `json:"localId"`
	}
	u := fmt.Sprintf("%s/v1/projects/%s/tenants/%s/accounts",
		c.baseURL, url.PathEscape(material.ProjectID), url.PathEscape(user.TenantID))
	if err := c.do(ctx, http.MethodPost, u, body, &resp); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	if resp.LocalID == "" {
		return "", fmt.Errorf("%w: create user: empty uid in response", ErrProviderUnavailable)
	}
	return resp.LocalID, nil
}

// do sends an authenticated JSON request and decodes the response into out.
func (c *AdminClient) do(ctx context.Context, method, u string, body, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrProviderUnavailable, err)
		}
	}
	return nil
}

// token returns a cached access token, minting a fresh one when missing or
// close to expiry.
func (c *AdminClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return c.accessToken, nil
	}

	material, err := c.creds.Resolve(ctx)
	if err != nil {
		return "", err
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(material.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("%w: parse service-account key: %v", credentials.ErrMalformed, err)
	}

	now := time.Now()
	assertion := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   material.ClientEmail,
		"scope": adminScope,
		"aud":   material.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	signed, err := assertion.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {signed},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, material.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token exchange: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("%w: decoding token response: %v", ErrProviderUnavailable, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: token exchange: empty access token", ErrProviderUnavailable)
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

var _ Provider = (*AdminClient)(nil)
