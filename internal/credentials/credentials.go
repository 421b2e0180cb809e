// Package credentials resolves the identity-provider service credentials,
// either from a remote secret store or from a local file.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tenantgate/tenantgate/internal/config"
)

var (
	// ErrUnavailable indicates the secret store denied access or the
	// secret/file does not exist.
	ErrUnavailable = errors.New("credentials unavailable")
	// ErrMalformed indicates the credential payload could not be parsed.
	ErrMalformed = errors.New("credentials payload malformed")
)

// Material is the parsed service-account credential used to authenticate
// against the identity provider's admin API.
type Material struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// ParseMaterial decodes a credential JSON payload and checks required fields.
func ParseMaterial(payload []byte) (*Material, error) {
	var m Material
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.ProjectID == "" || m.ClientEmail == "" || m.PrivateKey == "" {
		return nil, fmt.Errorf("%w: missing project_id, client_email or private_key", ErrMalformed)
	}
	return &m, nil
}

// Source fetches a raw credential payload.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Provider resolves credential material exactly once per process. The first
// successful resolution is cached; resolution failures are returned to the
// caller, who is expected to treat them as fatal. First use is mutex-guarded
// so concurrent cold-start requests never race the initialization.
type Provider struct {
	mu     sync.Mutex
	source Source
	cached *Material
}

// NewProvider creates a Provider backed by the given source.
func NewProvider(source Source) *Provider {
	return &Provider{source: source}
}

// FromConfig builds a Provider for the configured credential mode.
// Mode-specific required fields are validated at config load time.
func FromConfig(cfg config.CredentialsConfig, project string) (*Provider, error) {
	switch cfg.Source {
	case config.CredentialSourceVault:
		store, err := NewVaultStore(cfg.VaultAddr, cfg.VaultToken, cfg.VaultMount)
		if err != nil {
			return nil, fmt.Errorf("create vault store: %w", err)
		}
		return NewProvider(&storeSource{store: store, project: project, name: cfg.SecretName}), nil
	case config.CredentialSourceFile:
		return NewProvider(&FileSource{Path: cfg.FilePath}), nil
	default:
		return nil, fmt.Errorf("unknown credential source %q", cfg.Source)
	}
}

// Resolve returns the credential material, fetching and parsing it on first use.
func (p *Provider) Resolve(ctx context.Context) (*Material, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return p.cached, nil
	}

	payload, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	m, err := ParseMaterial(payload)
	if err != nil {
		return nil, err
	}
	p.cached = m
	return m, nil
}

// storeSource adapts a SecretStore to the Source interface, always reading
// the latest version.
type storeSource struct {
	store   SecretStore
	project string
	name    string
}

// NewStoreSource returns a Source reading the named secret from a SecretStore.
func NewStoreSource(store SecretStore, project, name string) Source {
	return &storeSource{store: store, project: project, name: name}
}

func (s *storeSource) Fetch(ctx context.Context) ([]byte, error) {
	return s.store.AccessSecretVersion(ctx, s.project, s.name, "latest")
}
