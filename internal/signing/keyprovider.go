// Package signing produces the signed certificate artifact asynchronously.
// The issue request path only enqueues a record id; a worker picks it up,
// signs the raw document and applies the single terminal status transition.
package signing

import (
	"fmt"

	"github.com/clearance-networks/cnd-service/internal/crypto"
)

// KeyProvider supplies the signing key. Implementations load the key once;
// callers must not mutate the returned key material.
type KeyProvider interface {
	SigningKey() (key any, keyID string, err error)
}

// FileKeyProvider holds a private key loaded from a JWK file at startup.
// Loading at startup rather than per signature means a bad key path fails the
// process before it accepts any issuance request.
type FileKeyProvider struct {
	key   any
	keyID string
}

func NewFileKeyProvider(path string) (*FileKeyProvider, error) {
	key, keyID, err := crypto.ReadPrivateKeyFromJWKFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key from %s: %w", path, err)
	}
	return &FileKeyProvider{key: key, keyID: keyID}, nil
}

func (p *FileKeyProvider) SigningKey() (any, string, error) {
	return p.key, p.keyID, nil
}

// StaticKeyProvider wraps an already-constructed key. Used by tests and the
// keygen tooling.
type StaticKeyProvider struct {
	Key   any
	KeyID string
}

func (p *StaticKeyProvider) SigningKey() (any, string, error) {
	if p.Key == nil {
		return nil, "", fmt.Errorf("no signing key configured")
	}
	return p.Key, p.KeyID, nil
}
