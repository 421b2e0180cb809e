package credentials

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads the credential JSON from a local file. Intended for
// development; production deployments should use the secret store.
type FileSource struct {
	Path string
}

func (f *FileSource) Fetch(_ context.Context) ([]byte, error) {
	payload, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, f.Path, err)
	}
	return payload, nil
}
