// JWK (JSON Web Key) conversions.
//
// these functions convert raw RSA/Ed25519 keys to JWK format (and vice versa)
// Reference: https://datatracker.ietf.org/doc/html/rfc7517 (JSON Web Key standard)
//
// used by the keygen CLI to generate signing keys and by the server to publish
// the verification key via /.well-known/jwks.json

package crypto

import (
	stdcrypto "crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// PublicKeyToJWK converts a public key (ed25519.PublicKey or *rsa.PublicKey)
// to JWK format with the kid, alg and use fields set.
func PublicKeyToJWK(publicKey any, keyID string) (jwk.Key, error) {
	if publicKey == nil {
		return nil, fmt.Errorf("public key is nil")
	}
	if keyID == "" {
		return nil, fmt.Errorf("keyID is required")
	}

	key, err := jwk.Import(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK from public key: %w", err)
	}

	if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}

	if err := key.Set(jwk.AlgorithmKey, algorithmFor(publicKey)); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}

	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, fmt.Errorf("failed to set key usage: %w", err)
	}

	return key, nil
}

// PrivateKeyToJWK converts a private key (ed25519.PrivateKey or
// *rsa.PrivateKey) to JWK format with the kid and alg fields set.
func PrivateKeyToJWK(privateKey any, keyID string) (jwk.Key, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key is nil")
	}
	if keyID == "" {
		return nil, fmt.Errorf("keyID is required")
	}

	key, err := jwk.Import(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK from private key: %w", err)
	}

	if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}

	if err := key.Set(jwk.AlgorithmKey, algorithmFor(publicKeyOf(privateKey))); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}

	return key, nil
}

// PublicJWKSet builds a one-key JWK set holding the public half of a private
// key. The server publishes this set on /.well-known/jwks.json.
func PublicJWKSet(privateKey any, keyID string) (jwk.Set, error) {
	publicKey := publicKeyOf(privateKey)
	if publicKey == nil {
		return nil, fmt.Errorf("unsupported private key type %T", privateKey)
	}

	key, err := PublicKeyToJWK(publicKey, keyID)
	if err != nil {
		return nil, err
	}

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, fmt.Errorf("failed to add key to JWK set: %w", err)
	}
	return set, nil
}

// Thumbprint returns the RFC 7638 SHA-256 thumbprint of a public key,
// base64url encoded. The thumbprint is the conventional kid for the key.
func Thumbprint(publicKey any) (string, error) {
	key, err := jwk.Import(publicKey)
	if err != nil {
		return "", fmt.Errorf("failed to create JWK from public key: %w", err)
	}

	thumbprint, err := key.Thumbprint(stdcrypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("failed to compute thumbprint: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(thumbprint), nil
}

// algorithmFor returns the JWS algorithm for a public key type.
func algorithmFor(publicKey any) jwa.KeyAlgorithm {
	switch publicKey.(type) {
	case *rsa.PublicKey:
		return jwa.RS256()
	case ed25519.PublicKey:
		return jwa.EdDSA()
	default:
		return jwa.EdDSA()
	}
}
