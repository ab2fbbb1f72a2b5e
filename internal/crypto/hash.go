// this file provides the SHA-256 hashing used for certificate integrity checks.
//
// Hashes are needed for:
//  1. The raw rendered certificate document (returned at issuance time)
//  2. The signed artifact (exposed by the validation endpoint as proof of integrity)
//  3. The request fingerprint over normalized issuance parameters

package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash calculates the SHA-256 digest of data and returns it as a hex string.
func Hash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("data is empty")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashString calculates the SHA-256 hex digest of a string. Used for request
// fingerprints where the input is a normalized parameter string.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// VerifyHash verifies that data matches the expected SHA-256 hex digest.
func VerifyHash(data []byte, expected string) bool {
	digest, err := Hash(data)
	if err != nil {
		return false
	}
	return digest == expected
}
