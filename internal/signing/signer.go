package signing

import (
	"context"
	"time"

	"github.com/clearance-networks/cnd-service/internal/cnd"
	"github.com/clearance-networks/cnd-service/internal/crypto"
)

// Signer turns a raw certificate document into the signed artifact plus its
// signature metadata.
type Signer interface {
	Sign(ctx context.Context, rawDocument []byte) ([]byte, cnd.SignatureMetadata, error)
}

// JWSSigner produces a JWS compact serialization over the raw document. With
// an Ed25519 key the signature is deterministic, so the artifact hash is
// stable across re-signs of the same document.
type JWSSigner struct {
	keys     KeyProvider
	identity string
}

// NewJWSSigner creates a signer. identity names the signing party in the
// certificate's signature metadata (e.g. "CN=CND Issuing Service").
func NewJWSSigner(keys KeyProvider, identity string) *JWSSigner {
	return &JWSSigner{keys: keys, identity: identity}
}

func (s *JWSSigner) Sign(ctx context.Context, rawDocument []byte) ([]byte, cnd.SignatureMetadata, error) {
	key, keyID, err := s.keys.SigningKey()
	if err != nil {
		return nil, cnd.SignatureMetadata{}, cnd.WrapSigningError(err, "signing key unavailable")
	}

	algorithm, err := crypto.SignatureAlgorithmName(key)
	if err != nil {
		return nil, cnd.SignatureMetadata{}, cnd.WrapSigningError(err, "unsupported signing key type")
	}

	signed, err := crypto.Sign(rawDocument, key, keyID)
	if err != nil {
		return nil, cnd.SignatureMetadata{}, cnd.WrapSigningError(err, "failed to sign certificate document")
	}

	hash, err := crypto.Hash(signed)
	if err != nil {
		return nil, cnd.SignatureMetadata{}, cnd.WrapSigningError(err, "failed to hash signed artifact")
	}

	metadata := cnd.SignatureMetadata{
		Algorithm:    algorithm,
		Signer:       s.identity,
		SignedAt:     time.Now().UTC(),
		DocumentHash: hash,
	}
	return signed, metadata, nil
}
