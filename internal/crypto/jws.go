// jws.go - signing and verifying the certificate document as a JWS
// (JSON Web Signature, compact serialization).
//
// The signed artifact stored for a certificate is the compact JWS string: the
// raw rendered document travels as the payload, so a verifier can both check
// the signature and recover the document from the artifact alone. Ed25519
// signatures are deterministic, so the artifact (and therefore its integrity
// hash) is stable across reads.

package crypto

import (
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
)

// SignatureAlgorithmName returns the JWS "alg" value used for the given
// private key ("EdDSA" or "RS256").
func SignatureAlgorithmName(privateKey any) (string, error) {
	switch privateKey.(type) {
	case ed25519.PrivateKey:
		return jwa.EdDSA().String(), nil
	case *rsa.PrivateKey:
		return jwa.RS256().String(), nil
	default:
		return "", fmt.Errorf("unsupported private key type %T", privateKey)
	}
}

// Sign produces a JWS compact serialization over payload using the private key
// (ed25519.PrivateKey or *rsa.PrivateKey). The kid is included in the
// protected header so verifiers can select the right key from a JWK set.
func Sign(payload []byte, privateKey any, keyID string) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}
	if keyID == "" {
		return nil, fmt.Errorf("keyID is required")
	}

	headers := jws.NewHeaders()
	if err := headers.Set(jws.KeyIDKey, keyID); err != nil {
		return nil, fmt.Errorf("failed to set kid header: %w", err)
	}

	var alg jwa.SignatureAlgorithm
	switch privateKey.(type) {
	case ed25519.PrivateKey:
		alg = jwa.EdDSA()
	case *rsa.PrivateKey:
		alg = jwa.RS256()
	default:
		return nil, fmt.Errorf("unsupported private key type %T", privateKey)
	}

	signed, err := jws.Sign(payload, jws.WithKey(alg, privateKey, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	return signed, nil
}

// Verify checks a JWS compact serialization against a public key
// (ed25519.PublicKey or *rsa.PublicKey) and returns the payload.
func Verify(signed []byte, publicKey any) ([]byte, error) {
	var alg jwa.SignatureAlgorithm
	switch publicKey.(type) {
	case ed25519.PublicKey:
		alg = jwa.EdDSA()
	case *rsa.PublicKey:
		alg = jwa.RS256()
	default:
		return nil, fmt.Errorf("unsupported public key type %T", publicKey)
	}

	payload, err := jws.Verify(signed, jws.WithKey(alg, publicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to verify JWS: %w", err)
	}

	return payload, nil
}

// VerifyWithKeySet checks a JWS compact serialization against a JWK set,
// matching the signature's kid against the keys in the set, and returns the
// payload. The client CLI uses this with the JWK set published by the server.
func VerifyWithKeySet(signed []byte, set jwk.Set) ([]byte, error) {
	payload, err := jws.Verify(signed, jws.WithKeySet(set))
	if err != nil {
		return nil, fmt.Errorf("failed to verify JWS against key set: %w", err)
	}

	return payload, nil
}
