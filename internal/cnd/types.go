package cnd

// types.go defines the certificate record and the API request/response types.

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a certificate record.
//
// A record is created as StatusPending and is moved exactly once to one of the
// terminal states by the signing worker. There are no transitions out of a
// terminal state.
type Status string

const (
	// StatusPending - the certificate has been rendered and stored but not yet signed
	StatusPending Status = "PENDING"

	// StatusSigned - the signing worker produced the signed artifact
	StatusSigned Status = "SIGNED"

	// StatusFailed - signing failed; the failure is terminal and is surfaced
	// only through subsequent validation queries
	StatusFailed Status = "FAILED"
)

// Terminal reports whether no further status transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusSigned || s == StatusFailed
}

// SignatureMetadata describes the signature applied to a certificate document.
// It is present if and only if the record status is SIGNED.
type SignatureMetadata struct {
	// Algorithm is the JWS algorithm used (e.g. "EdDSA" or "RS256")
	Algorithm string `json:"algorithm"`

	// Signer identifies the signing party (e.g. "CN=CND Issuing Service")
	Signer string `json:"signer"`

	// SignedAt is the time the signature was produced
	SignedAt time.Time `json:"signedAt"`

	// DocumentHash is the SHA-256 hex digest of the signed artifact
	DocumentHash string `json:"documentHash"`
}

// Certificate is one issuance attempt for a unit. One row per accepted
// issuance; duplicate requests inside the rate-limit window increment
// AttemptCount on the newest matching row instead of creating a new one.
type Certificate struct {
	ID             uuid.UUID
	ValidationCode string
	UnitID         uuid.UUID

	// RequestFingerprint is the SHA-256 hex digest of the normalized issuance
	// parameters, used to detect duplicate requests
	RequestFingerprint string

	Status  Status
	Channel string

	// RawDocument is the unsigned rendered certificate (canonical JSON bytes)
	RawDocument []byte

	// SignedDocument is the JWS produced by the signing worker (nil until signed)
	SignedDocument []byte

	SignatureMetadata *SignatureMetadata

	// AttemptCount is the number of issuance attempts collapsed into this
	// record within the current rate-limit window
	AttemptCount int

	OriginAddress string

	CreatedAt time.Time
	SignedAt  *time.Time
	ExpiresAt time.Time
}

// IssueRequest is the caller-supplied issuance options.
type IssueRequest struct {
	// WithPeriod includes the list of covered due dates in the certificate
	WithPeriod bool `json:"withPeriod"`

	// WithSignature requests a visible signature block in the rendered document
	WithSignature bool `json:"withSignature"`

	// Channel records where the request originated (e.g. "WEB", "APP")
	Channel string `json:"channel"`
}

// IssueResponse is returned immediately after the PENDING record is persisted.
// DocumentHash is the digest of the raw rendered document - the signed hash is
// only available once the record reaches SIGNED.
type IssueResponse struct {
	ValidationCode string    `json:"validationCode"`
	Status         Status    `json:"status"`
	IssuedAt       time.Time `json:"issuedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	ValidationURL  string    `json:"validationUrl"`
	DocumentHash   string    `json:"documentHash"`
}

// ValidationResponse is the read-only status payload for a validation code.
type ValidationResponse struct {
	ValidationCode string     `json:"validationCode"`
	Valid          bool       `json:"valid"`
	Status         Status     `json:"status"`
	IssuedAt       time.Time  `json:"issuedAt"`
	SignedAt       *time.Time `json:"signedAt,omitempty"`
	ExpiresAt      time.Time  `json:"expiresAt"`

	// entity metadata for display on the validation page
	CondominiumName string `json:"condominiumName,omitempty"`
	UnitCode        string `json:"unitCode,omitempty"`
	Block           string `json:"block,omitempty"`

	// DocumentHash is the digest of the signed artifact (absent until signed)
	DocumentHash string `json:"documentHash,omitempty"`

	SignatureMetadata *SignatureMetadata `json:"signatureMetadata,omitempty"`
}

// VerifyHashRequest carries the candidate digest for hash verification.
type VerifyHashRequest struct {
	Hash string `json:"hash"`
}

// VerifyHashResponse is a bare boolean - hash verification never surfaces
// errors past the API boundary.
type VerifyHashResponse struct {
	Valid bool `json:"valid"`
}
