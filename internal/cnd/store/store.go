// Package store persists certificate records.
//
// The store is the single shared mutable resource of the issuance pipeline:
// the coordinator creates PENDING records, the signing worker applies exactly
// one terminal transition per record, and the validation gateway only reads.
// The one contended operation is the duplicate-attempt counter, which must be
// atomic with respect to concurrent requests sharing a fingerprint.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clearance-networks/cnd-service/internal/cnd"
)

var (
	// ErrNotFound - no record with the given id or validation code
	ErrNotFound = errors.New("certificate record not found")

	// ErrDuplicateCode - the validation code is already taken. The coordinator
	// reacts by generating a new code and retrying.
	ErrDuplicateCode = errors.New("validation code already exists")

	// ErrTerminalState - attempted a terminal transition on a record that is
	// no longer PENDING. Status transitions are monotonic; this is returned
	// rather than silently overwriting the earlier outcome.
	ErrTerminalState = errors.New("certificate record already in terminal state")
)

// DuplicateDecision is the outcome of the atomic duplicate-attempt check.
type DuplicateDecision int

const (
	// DecisionFresh - no record shares this fingerprint inside the window.
	// From CountDuplicateAttempt the caller proceeds to create a record with
	// attempt count 1; from CreateFirstAttempt the record was just inserted.
	DecisionFresh DuplicateDecision = iota

	// DecisionDuplicateAllowed - a matching record exists and its attempt
	// counter was incremented; the request may proceed as a legitimate retry.
	DecisionDuplicateAllowed

	// DecisionRateLimited - a matching record exists with an exhausted attempt
	// counter; the request must be rejected with no side effect.
	DecisionRateLimited
)

// Store is the certificate record persistence contract.
type Store interface {
	// Create persists a new PENDING record unconditionally. Returns
	// ErrDuplicateCode when the validation code collides with an existing
	// record. Issuance must go through CreateFirstAttempt instead; Create is
	// for paths that own their record outright (seeding, replay).
	Create(ctx context.Context, record *cnd.Certificate) error

	// CreateFirstAttempt persists record only if no record matching its
	// (unit, fingerprint) exists inside the window; otherwise it behaves like
	// CountDuplicateAttempt against the existing record. The window re-check
	// and the insert are one indivisible operation, so concurrent first-time
	// requests sharing a fingerprint cannot each create a record: exactly one
	// inserts (DecisionFresh) and the rest count against its attempt counter.
	// On DecisionFresh the stored record is returned; on
	// DecisionDuplicateAllowed the existing record (post-increment); nil when
	// rate limited. Returns ErrDuplicateCode on a validation code collision.
	CreateFirstAttempt(ctx context.Context, record *cnd.Certificate, windowStart time.Time, threshold int) (DuplicateDecision, *cnd.Certificate, error)

	GetByID(ctx context.Context, id uuid.UUID) (*cnd.Certificate, error)
	GetByCode(ctx context.Context, code string) (*cnd.Certificate, error)

	// CountDuplicateAttempt atomically locates the newest record matching
	// (unitID, fingerprint) created after windowStart and increments its
	// attempt counter if it is below threshold. The check and increment are a
	// single indivisible operation: two concurrent calls can never both pass
	// a counter that only has room for one. On DecisionDuplicateAllowed the
	// matched record (post-increment) is returned so the caller can re-surface
	// its outcome; the record is nil for the other decisions.
	CountDuplicateAttempt(ctx context.Context, unitID uuid.UUID, fingerprint string, windowStart time.Time, threshold int) (DuplicateDecision, *cnd.Certificate, error)

	// MarkSigned transitions a PENDING record to SIGNED, storing the signed
	// artifact and its signature metadata. Returns ErrTerminalState if the
	// record already reached a terminal state.
	MarkSigned(ctx context.Context, id uuid.UUID, signedDocument []byte, metadata cnd.SignatureMetadata, signedAt time.Time) error

	// MarkFailed transitions a PENDING record to FAILED. Returns
	// ErrTerminalState if the record already reached a terminal state.
	MarkFailed(ctx context.Context, id uuid.UUID) error
}
