package issuance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearance-networks/cnd-service/internal/cnd"
	"github.com/clearance-networks/cnd-service/internal/cnd/store"
	"github.com/clearance-networks/cnd-service/internal/crypto"
)

// FingerprintGuard rate-limits repeated identical issuance requests. Two
// requests carry the same fingerprint when they target the same unit with the
// same options; the guard allows a bounded number of those inside a sliding
// window and rejects the rest.
type FingerprintGuard struct {
	store     store.Store
	window    time.Duration
	threshold int
}

func NewFingerprintGuard(recordStore store.Store, window time.Duration, threshold int) *FingerprintGuard {
	return &FingerprintGuard{
		store:     recordStore,
		window:    window,
		threshold: threshold,
	}
}

// Fingerprint derives the dedup key for a request. The normalization is part
// of the persisted data contract: changing it orphans in-window records.
func Fingerprint(unitID uuid.UUID, withPeriod, withSignature bool) string {
	return crypto.HashString(fmt.Sprintf("%s|%t|%t", unitID, withPeriod, withSignature))
}

// Check classifies the request against the window. The check-and-increment is
// a single store operation, so concurrent duplicates cannot both slip under
// the threshold. On DecisionDuplicateAllowed the matched record is returned
// so the coordinator can re-surface its outcome. A fresh verdict is only
// advisory: the store re-checks the window atomically when the record is
// created, which arbitrates between concurrent first-time requests.
func (g *FingerprintGuard) Check(ctx context.Context, unitID uuid.UUID, fingerprint string, now time.Time) (store.DuplicateDecision, *cnd.Certificate, error) {
	windowStart := now.Add(-g.window)
	decision, record, err := g.store.CountDuplicateAttempt(ctx, unitID, fingerprint, windowStart, g.threshold)
	if err != nil {
		return store.DecisionFresh, nil, fmt.Errorf("failed to check duplicate window: %w", err)
	}
	return decision, record, nil
}
