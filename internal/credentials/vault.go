package credentials

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// payloadKey is the KV field holding the credential JSON document.
const payloadKey = "credentials"

// SecretStore is the remote secret-store collaborator.
type SecretStore interface {
	AccessSecretVersion(ctx context.Context, project, name, version string) ([]byte, error)
}

// VaultStore implements SecretStore against a Vault KV v2 mount. Secrets are
// stored under <mount>/data/<project>/<name> with the credential JSON in the
// "credentials" field.
type VaultStore struct {
	client *vault.Client
	mount  string
}

// NewVaultStore creates a VaultStore. Zero-value address/token fall back to
// the standard VAULT_* environment variables honored by the Vault client.
func NewVaultStore(addr, token, mount string) (*VaultStore, error) {
	cfg := vault.DefaultConfig()
	if cfg.Error != nil {
		return nil, cfg.Error
	}
	if addr != "" {
		cfg.Address = addr
	}

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if token != "" {
		client.SetToken(token)
	}
	if mount == "" {
		mount = "secret"
	}

	return &VaultStore{client: client, mount: mount}, nil
}

// AccessSecretVersion reads one version of a named secret. Version "latest"
// (or empty) reads the current version.
func (s *VaultStore) AccessSecretVersion(ctx context.Context, project, name, version string) ([]byte, error) {
	path := fmt.Sprintf("%s/data/%s/%s", s.mount, project, name)

	var (
		sec *vault.Secret
		err error
	)
	if version == "" || version == "latest" {
		sec, err = s.client.Logical().ReadWithContext(ctx, path)
	} else {
		sec, err = s.client.Logical().ReadWithDataWithContext(ctx, path, map[string][]string{
			"version": {version},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, path, err)
	}
	if sec == nil {
		return nil, fmt.Errorf("%w: secret %s/%s not found", ErrUnavailable, project, name)
	}

	data, ok := sec.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: secret %s has no KV v2 data envelope", ErrMalformed, path)
	}
	payload, ok := data[payloadKey].(string)
	if !ok || payload == "" {
		return nil, fmt.Errorf("%w: secret %s missing %q field", ErrMalformed, path, payloadKey)
	}

	return []byte(payload), nil
}
