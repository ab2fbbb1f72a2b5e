// this file contains functions to generate and manage the signing key pair.
//
// The service signs certificates with either an Ed25519 or an RSA private key.
// Ed25519 is the recommended key type since it is more secure and efficient than RSA.
// Keys are stored in JWK format; PEM export is provided for interop with
// certificate provisioning tooling (PKCS#8, https://datatracker.ietf.org/doc/html/rfc5208).

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// GenerateEd25519KeyPair generates a new ED25519 private key
func GenerateEd25519KeyPair() (ed25519.PrivateKey, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	return privateKey, nil
}

// GenerateRSAKeyPair generates a new RSA private key of the given bit size (2048 or 4096)
func GenerateRSAKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits != 2048 && bits != 4096 {
		return nil, fmt.Errorf("unsupported RSA key size: %d", bits)
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	return privateKey, nil
}

// SavePrivateKeyToJWKFile saves a private key (ed25519.PrivateKey or
// *rsa.PrivateKey) to a JWK file. Note the key is not encrypted.
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "private.jwk")
func SavePrivateKeyToJWKFile(privateKey any, keyID, baseDir, filename string) error {
	jwkKey, err := PrivateKeyToJWK(privateKey, keyID)
	if err != nil {
		return fmt.Errorf("failed to create JWK: %w", err)
	}

	jwkSet := jwk.NewSet()
	if err := jwkSet.AddKey(jwkKey); err != nil {
		return fmt.Errorf("failed to add key to JWK set: %w", err)
	}

	jsonBytes, err := json.MarshalIndent(jwkSet, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JWK set: %w", err)
	}

	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open root directory %s: %w", baseDir, err)
	}
	defer root.Close()

	if err := root.WriteFile(filename, jsonBytes, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// SavePublicKeyToJWKFile saves the public half of a signing key to a JWK file.
func SavePublicKeyToJWKFile(privateKey any, keyID, baseDir, filename string) error {
	jwkKey, err := PublicKeyToJWK(publicKeyOf(privateKey), keyID)
	if err != nil {
		return fmt.Errorf("failed to create JWK: %w", err)
	}

	jwkSet := jwk.NewSet()
	if err := jwkSet.AddKey(jwkKey); err != nil {
		return fmt.Errorf("failed to add key to JWK set: %w", err)
	}

	jsonBytes, err := json.MarshalIndent(jwkSet, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JWK set: %w", err)
	}

	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open root directory %s: %w", baseDir, err)
	}
	defer root.Close()

	if err := root.WriteFile(filename, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// ReadPrivateKeyFromJWKFile loads a private key from a JWK file.
// Returns the raw key (ed25519.PrivateKey or *rsa.PrivateKey) and the kid.
func ReadPrivateKeyFromJWKFile(path string) (any, string, error) {
	root, err := os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open key directory: %w", err)
	}
	defer root.Close()

	jsonBytes, err := root.ReadFile(filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}

	jwkSet, err := jwk.Parse(jsonBytes)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse JWK set: %w", err)
	}

	if jwkSet.Len() == 0 {
		return nil, "", fmt.Errorf("JWK set is empty")
	}

	jwkKey, ok := jwkSet.Key(0)
	if !ok {
		return nil, "", fmt.Errorf("failed to get key from JWK set")
	}

	keyID, _ := jwkKey.KeyID()

	var raw any
	if err := jwk.Export(jwkKey, &raw); err != nil {
		return nil, "", fmt.Errorf("failed to export key: %w", err)
	}

	switch raw.(type) {
	case ed25519.PrivateKey, *rsa.PrivateKey:
		return raw, keyID, nil
	default:
		return nil, "", fmt.Errorf("key is not an Ed25519 or RSA private key")
	}
}

// SavePrivateKeyToPEMFile saves a private key to a PEM file in PKCS#8 format.
// The app uses JWK for key storage - this function is primarily for creating a
// PEM file usable in a CSR.
func SavePrivateKeyToPEMFile(privateKey any, baseDir, filename string) error {
	privBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privBytes,
	}

	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open root directory %s: %w", baseDir, err)
	}
	defer root.Close()

	file, err := root.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := pem.Encode(file, pemBlock); err != nil {
		return fmt.Errorf("failed to encode PEM: %w", err)
	}

	return nil
}

// publicKeyOf extracts the public half of a supported private key.
func publicKeyOf(privateKey any) any {
	switch key := privateKey.(type) {
	case ed25519.PrivateKey:
		return key.Public()
	case *rsa.PrivateKey:
		return &key.PublicKey
	default:
		return nil
	}
}
