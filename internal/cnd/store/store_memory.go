package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearance-networks/cnd-service/internal/cnd"
)

// InMemoryStore keeps certificate records in maps guarded by a single mutex.
// Holding the mutex across the whole of CountDuplicateAttempt and
// CreateFirstAttempt gives the same indivisibility the postgres store gets
// from its advisory lock and row locks.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*cnd.Certificate
	byCode map[string]uuid.UUID
}

// NewInMemoryStore creates an empty in-memory record store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[uuid.UUID]*cnd.Certificate),
		byCode: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, record *cnd.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(record)
}

func (s *InMemoryStore) CreateFirstAttempt(ctx context.Context, record *cnd.Certificate, windowStart time.Time, threshold int) (DuplicateDecision, *cnd.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A concurrent request may have inserted the first window record between
	// the caller's duplicate check and now; the re-check under the same lock
	// as the insert closes that gap.
	if newest := s.newestInWindowLocked(record.UnitID, record.RequestFingerprint, windowStart); newest != nil {
		if newest.AttemptCount >= threshold {
			return DecisionRateLimited, nil, nil
		}
		newest.AttemptCount++
		return DecisionDuplicateAllowed, cloneRecord(newest), nil
	}

	if err := s.insertLocked(record); err != nil {
		return DecisionFresh, nil, err
	}
	return DecisionFresh, cloneRecord(record), nil
}

func (s *InMemoryStore) insertLocked(record *cnd.Certificate) error {
	if _, exists := s.byCode[record.ValidationCode]; exists {
		return ErrDuplicateCode
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	clone := cloneRecord(record)
	s.byID[record.ID] = clone
	s.byCode[record.ValidationCode] = record.ID
	return nil
}

func (s *InMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*cnd.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(record), nil
}

func (s *InMemoryStore) GetByCode(ctx context.Context, code string) (*cnd.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(s.byID[id]), nil
}

func (s *InMemoryStore) CountDuplicateAttempt(ctx context.Context, unitID uuid.UUID, fingerprint string, windowStart time.Time, threshold int) (DuplicateDecision, *cnd.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newest := s.newestInWindowLocked(unitID, fingerprint, windowStart)
	if newest == nil {
		return DecisionFresh, nil, nil
	}
	if newest.AttemptCount >= threshold {
		return DecisionRateLimited, nil, nil
	}
	newest.AttemptCount++
	return DecisionDuplicateAllowed, cloneRecord(newest), nil
}

// newestInWindowLocked finds the newest record matching (unitID, fingerprint)
// created after windowStart. Callers must hold the mutex.
func (s *InMemoryStore) newestInWindowLocked(unitID uuid.UUID, fingerprint string, windowStart time.Time) *cnd.Certificate {
	var newest *cnd.Certificate
	for _, record := range s.byID {
		if record.UnitID != unitID || record.RequestFingerprint != fingerprint {
			continue
		}
		if !record.CreatedAt.After(windowStart) {
			continue
		}
		if newest == nil || record.CreatedAt.After(newest.CreatedAt) {
			newest = record
		}
	}
	return newest
}

func (s *InMemoryStore) MarkSigned(ctx context.Context, id uuid.UUID, signedDocument []byte, metadata cnd.SignatureMetadata, signedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if record.Status.Terminal() {
		return ErrTerminalState
	}

	record.Status = cnd.StatusSigned
	record.SignedDocument = append([]byte(nil), signedDocument...)
	meta := metadata
	record.SignatureMetadata = &meta
	at := signedAt
	record.SignedAt = &at
	return nil
}

func (s *InMemoryStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if record.Status.Terminal() {
		return ErrTerminalState
	}

	record.Status = cnd.StatusFailed
	return nil
}

// cloneRecord deep-copies a record so callers cannot mutate stored state.
func cloneRecord(record *cnd.Certificate) *cnd.Certificate {
	clone := *record
	clone.RawDocument = append([]byte(nil), record.RawDocument...)
	if record.SignedDocument != nil {
		clone.SignedDocument = append([]byte(nil), record.SignedDocument...)
	}
	if record.SignatureMetadata != nil {
		meta := *record.SignatureMetadata
		clone.SignatureMetadata = &meta
	}
	if record.SignedAt != nil {
		at := *record.SignedAt
		clone.SignedAt = &at
	}
	return &clone
}
