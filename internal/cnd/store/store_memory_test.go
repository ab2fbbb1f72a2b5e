package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clearance-networks/cnd-service/internal/cnd"
)

func newTestRecord(code string) *cnd.Certificate {
	return &cnd.Certificate{
		ValidationCode:     code,
		UnitID:             uuid.New(),
		RequestFingerprint: "fp-" + code,
		Status:             cnd.StatusPending,
		Channel:            "WEB",
		RawDocument:        []byte(`{"validation_code":"` + code + `"}`),
		AttemptCount:       1,
		ExpiresAt:          time.Now().UTC().Add(720 * time.Hour),
	}
}

func TestCreateAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	record := newTestRecord("CND260831001")
	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("Create() returned error: %v", err)
	}
	if record.ID == uuid.Nil {
		t.Fatal("Create() did not assign an ID")
	}

	byID, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID() returned error: %v", err)
	}
	if byID.ValidationCode != record.ValidationCode {
		t.Errorf("validation code = %s, want %s", byID.ValidationCode, record.ValidationCode)
	}

	byCode, err := store.GetByCode(ctx, record.ValidationCode)
	if err != nil {
		t.Fatalf("GetByCode() returned error: %v", err)
	}
	if byCode.ID != record.ID {
		t.Errorf("record ID = %s, want %s", byCode.ID, record.ID)
	}

	if _, err := store.GetByCode(ctx, "CND999999999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByCode() for unknown code returned %v, want ErrNotFound", err)
	}
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, newTestRecord("CND260831001")); err != nil {
		t.Fatalf("Create() returned error: %v", err)
	}
	if err := store.Create(ctx, newTestRecord("CND260831001")); !errors.Is(err, ErrDuplicateCode) {
		t.Errorf("Create() with duplicate code returned %v, want ErrDuplicateCode", err)
	}
}

// returned records are copies - mutating them must not touch stored state
func TestGetReturnsClone(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	record := newTestRecord("CND260831001")
	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("Create() returned error: %v", err)
	}

	got, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID() returned error: %v", err)
	}
	got.Status = cnd.StatusFailed
	got.RawDocument[0] = 'X'

	again, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID() returned error: %v", err)
	}
	if again.Status != cnd.StatusPending {
		t.Error("mutating a returned record changed stored status")
	}
	if again.RawDocument[0] == 'X' {
		t.Error("mutating a returned record changed the stored document")
	}
}

func TestCountDuplicateAttempt(t *testing.T) {
	ctx := context.Background()
	unitID := uuid.New()
	fingerprint := "abc123"
	windowStart := time.Now().UTC().Add(-time.Hour)

	seed := func(t *testing.T, store *InMemoryStore, attempts int, createdAt time.Time) *cnd.Certificate {
		t.Helper()
		record := newTestRecord("CND260831050")
		record.UnitID = unitID
		record.RequestFingerprint = fingerprint
		record.AttemptCount = attempts
		record.CreatedAt = createdAt
		if err := store.Create(ctx, record); err != nil {
			t.Fatalf("Create() returned error: %v", err)
		}
		return record
	}

	t.Run("no prior record is fresh", func(t *testing.T) {
		store := NewInMemoryStore()
		decision, record, err := store.CountDuplicateAttempt(ctx, unitID, fingerprint, windowStart, 5)
		if err != nil {
			t.Fatalf("CountDuplicateAttempt() returned error: %v", err)
		}
		if decision != DecisionFresh {
			t.Errorf("decision = %v, want DecisionFresh", decision)
		}
		if record != nil {
			t.Error("fresh decision returned a record")
		}
	})

	t.Run("record outside the window is fresh", func(t *testing.T) {
		store := NewInMemoryStore()
		seed(t, store, 1, time.Now().UTC().Add(-2*time.Hour))
		decision, _, err := store.CountDuplicateAttempt(ctx, unitID, fingerprint, windowStart, 5)
		if err != nil {
			t.Fatalf("CountDuplicateAttempt() returned error: %v", err)
		}
		if decision != DecisionFresh {
			t.Errorf("decision = %v, want DecisionFresh", decision)
		}
	})

	t.Run("duplicate below threshold increments and returns the record", func(t *testing.T) {
		store := NewInMemoryStore()
		seeded := seed(t, store, 1, time.Now().UTC())
		decision, record, err := store.CountDuplicateAttempt(ctx, unitID, fingerprint, windowStart, 5)
		if err != nil {
			t.Fatalf("CountDuplicateAttempt() returned error: %v", err)
		}
		if decision != DecisionDuplicateAllowed {
			t.Fatalf("decision = %v, want DecisionDuplicateAllowed", decision)
		}
		if record == nil {
			t.Fatal("allowed duplicate did not return the matched record")
		}
		if record.ID != seeded.ID {
			t.Errorf("returned record ID = %s, want %s", record.ID, seeded.ID)
		}
		if record.AttemptCount != 2 {
			t.Errorf("attempt count = %d, want 2", record.AttemptCount)
		}
	})

	t.Run("duplicate at threshold is rate limited", func(t *testing.T) {
		store := NewInMemoryStore()
		seed(t, store, 5, time.Now().UTC())
		decision, record, err := store.CountDuplicateAttempt(ctx, unitID, fingerprint, windowStart, 5)
		if err != nil {
			t.Fatalf("CountDuplicateAttempt() returned error: %v", err)
		}
		if decision != DecisionRateLimited {
			t.Errorf("decision = %v, want DecisionRateLimited", decision)
		}
		if record != nil {
			t.Error("rate limited decision returned a record")
		}

		// the counter must not move past the threshold
		got, err := store.GetByCode(ctx, "CND260831050")
		if err != nil {
			t.Fatalf("GetByCode() returned error: %v", err)
		}
		if got.AttemptCount != 5 {
			t.Errorf("attempt count = %d, want 5", got.AttemptCount)
		}
	})

	t.Run("different fingerprint is fresh", func(t *testing.T) {
		store := NewInMemoryStore()
		seed(t, store, 1, time.Now().UTC())
		decision, _, err := store.CountDuplicateAttempt(ctx, unitID, "other-fp", windowStart, 5)
		if err != nil {
			t.Fatalf("CountDuplicateAttempt() returned error: %v", err)
		}
		if decision != DecisionFresh {
			t.Errorf("decision = %v, want DecisionFresh", decision)
		}
	})
}

// with threshold 5 and an existing record at attempt 1, exactly 4 concurrent
// duplicates can be admitted before the limit trips
func TestCountDuplicateAttemptConcurrent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	unitID := uuid.New()
	windowStart := time.Now().UTC().Add(-time.Hour)

	record := newTestRecord("CND260831060")
	record.UnitID = unitID
	record.RequestFingerprint = "concurrent-fp"
	record.AttemptCount = 1
	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("Create() returned error: %v", err)
	}

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan DuplicateDecision, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, _, err := store.CountDuplicateAttempt(ctx, unitID, "concurrent-fp", windowStart, 5)
			if err != nil {
				t.Errorf("CountDuplicateAttempt() returned error: %v", err)
				return
			}
			results <- decision
		}()
	}
	wg.Wait()
	close(results)

	allowed, limited := 0, 0
	for decision := range results {
		switch decision {
		case DecisionDuplicateAllowed:
			allowed++
		case DecisionRateLimited:
			limited++
		default:
			t.Errorf("unexpected decision %v", decision)
		}
	}

	if allowed != 4 {
		t.Errorf("allowed = %d, want 4", allowed)
	}
	if limited != attempts-4 {
		t.Errorf("limited = %d, want %d", limited, attempts-4)
	}
}

func TestCreateFirstAttempt(t *testing.T) {
	ctx := context.Background()
	unitID := uuid.New()
	fingerprint := "first-fp"
	windowStart := time.Now().UTC().Add(-time.Hour)

	candidate := func(code string) *cnd.Certificate {
		record := newTestRecord(code)
		record.UnitID = unitID
		record.RequestFingerprint = fingerprint
		return record
	}

	t.Run("inserts on an empty window", func(t *testing.T) {
		store := NewInMemoryStore()

		decision, record, err := store.CreateFirstAttempt(ctx, candidate("CND260831070"), windowStart, 5)
		if err != nil {
			t.Fatalf("CreateFirstAttempt() returned error: %v", err)
		}
		if decision != DecisionFresh {
			t.Fatalf("decision = %v, want DecisionFresh", decision)
		}
		if record.AttemptCount != 1 {
			t.Errorf("attempt count = %d, want 1", record.AttemptCount)
		}
		if _, err := store.GetByCode(ctx, "CND260831070"); err != nil {
			t.Errorf("GetByCode() after insert returned error: %v", err)
		}
	})

	t.Run("re-surfaces an existing window record", func(t *testing.T) {
		store := NewInMemoryStore()
		first := candidate("CND260831071")
		if err := store.Create(ctx, first); err != nil {
			t.Fatalf("Create() returned error: %v", err)
		}

		decision, record, err := store.CreateFirstAttempt(ctx, candidate("CND260831072"), windowStart, 5)
		if err != nil {
			t.Fatalf("CreateFirstAttempt() returned error: %v", err)
		}
		if decision != DecisionDuplicateAllowed {
			t.Fatalf("decision = %v, want DecisionDuplicateAllowed", decision)
		}
		if record.ID != first.ID {
			t.Errorf("record ID = %s, want the existing record %s", record.ID, first.ID)
		}
		if record.AttemptCount != 2 {
			t.Errorf("attempt count = %d, want 2", record.AttemptCount)
		}
		// the losing candidate was not persisted
		if _, err := store.GetByCode(ctx, "CND260831072"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByCode() for the discarded candidate returned %v, want ErrNotFound", err)
		}
	})

	t.Run("rate limits at the threshold", func(t *testing.T) {
		store := NewInMemoryStore()
		first := candidate("CND260831073")
		first.AttemptCount = 5
		if err := store.Create(ctx, first); err != nil {
			t.Fatalf("Create() returned error: %v", err)
		}

		decision, record, err := store.CreateFirstAttempt(ctx, candidate("CND260831074"), windowStart, 5)
		if err != nil {
			t.Fatalf("CreateFirstAttempt() returned error: %v", err)
		}
		if decision != DecisionRateLimited {
			t.Fatalf("decision = %v, want DecisionRateLimited", decision)
		}
		if record != nil {
			t.Error("rate-limited call returned a record")
		}
		if _, err := store.GetByCode(ctx, "CND260831074"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByCode() for the rejected candidate returned %v, want ErrNotFound", err)
		}
	})

	t.Run("reports validation code collisions", func(t *testing.T) {
		store := NewInMemoryStore()
		if err := store.Create(ctx, newTestRecord("CND260831075")); err != nil {
			t.Fatalf("Create() returned error: %v", err)
		}

		_, _, err := store.CreateFirstAttempt(ctx, candidate("CND260831075"), windowStart, 5)
		if !errors.Is(err, ErrDuplicateCode) {
			t.Errorf("CreateFirstAttempt() with a taken code returned %v, want ErrDuplicateCode", err)
		}
	})
}

// concurrent first-time requests on an empty window must agree on a single
// record: one insert, threshold-1 admitted duplicates, the rest rate limited
func TestCreateFirstAttemptConcurrentFreshWindow(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	unitID := uuid.New()
	windowStart := time.Now().UTC().Add(-time.Hour)

	const attempts = 20
	type outcome struct {
		decision DuplicateDecision
		record   *cnd.Certificate
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	results := make(chan outcome, attempts)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record := newTestRecord(fmt.Sprintf("CND260831%03d", 100+i))
			record.UnitID = unitID
			record.RequestFingerprint = "fresh-fp"
			<-start
			decision, stored, err := store.CreateFirstAttempt(ctx, record, windowStart, 5)
			if err != nil {
				t.Errorf("CreateFirstAttempt() returned error: %v", err)
				return
			}
			results <- outcome{decision: decision, record: stored}
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	fresh, allowed, limited := 0, 0, 0
	codes := make(map[string]bool)
	for res := range results {
		switch res.decision {
		case DecisionFresh:
			fresh++
			codes[res.record.ValidationCode] = true
		case DecisionDuplicateAllowed:
			allowed++
			codes[res.record.ValidationCode] = true
		case DecisionRateLimited:
			limited++
		}
	}

	if fresh != 1 {
		t.Errorf("fresh = %d, want exactly 1", fresh)
	}
	if allowed != 4 {
		t.Errorf("allowed = %d, want 4", allowed)
	}
	if limited != attempts-5 {
		t.Errorf("limited = %d, want %d", limited, attempts-5)
	}
	if len(codes) != 1 {
		t.Errorf("accepted requests saw %d distinct records, want 1", len(codes))
	}
}

func TestMarkSignedAndMarkFailed(t *testing.T) {
	ctx := context.Background()
	metadata := cnd.SignatureMetadata{
		Algorithm:    "EdDSA",
		Signer:       "CN=CND Issuing Service",
		SignedAt:     time.Now().UTC(),
		DocumentHash: "abc123",
	}

	t.Run("mark signed", func(t *testing.T) {
		store := NewInMemoryStore()
		record := newTestRecord("CND260831001")
		if err := store.Create(ctx, record); err != nil {
			t.Fatalf("Create() returned error: %v", err)
		}

		signedAt := time.Now().UTC()
		if err := store.MarkSigned(ctx, record.ID, []byte("signed-artifact"), metadata, signedAt); err != nil {
			t.Fatalf("MarkSigned() returned error: %v", err)
		}

		got, err := store.GetByID(ctx, record.ID)
		if err != nil {
			t.Fatalf("GetByID() returned error: %v", err)
		}
		if got.Status != cnd.StatusSigned {
			t.Errorf("status = %s, want %s", got.Status, cnd.StatusSigned)
		}
		if string(got.SignedDocument) != "signed-artifact" {
			t.Error("signed document was not stored")
		}
		if got.SignatureMetadata == nil || got.SignatureMetadata.Algorithm != "EdDSA" {
			t.Error("signature metadata was not stored")
		}
		if got.SignedAt == nil || !got.SignedAt.Equal(signedAt) {
			t.Error("signed timestamp was not stored")
		}
	})

	t.Run("terminal records cannot transition again", func(t *testing.T) {
		store := NewInMemoryStore()
		record := newTestRecord("CND260831001")
		if err := store.Create(ctx, record); err != nil {
			t.Fatalf("Create() returned error: %v", err)
		}
		if err := store.MarkFailed(ctx, record.ID); err != nil {
			t.Fatalf("MarkFailed() returned error: %v", err)
		}

		if err := store.MarkSigned(ctx, record.ID, []byte("x"), metadata, time.Now().UTC()); !errors.Is(err, ErrTerminalState) {
			t.Errorf("MarkSigned() on FAILED record returned %v, want ErrTerminalState", err)
		}
		if err := store.MarkFailed(ctx, record.ID); !errors.Is(err, ErrTerminalState) {
			t.Errorf("MarkFailed() on FAILED record returned %v, want ErrTerminalState", err)
		}
	})

	t.Run("unknown record", func(t *testing.T) {
		store := NewInMemoryStore()
		if err := store.MarkSigned(ctx, uuid.New(), []byte("x"), metadata, time.Now().UTC()); !errors.Is(err, ErrNotFound) {
			t.Errorf("MarkSigned() returned %v, want ErrNotFound", err)
		}
		if err := store.MarkFailed(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
			t.Errorf("MarkFailed() returned %v, want ErrNotFound", err)
		}
	})
}
