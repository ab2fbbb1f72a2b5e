package entity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps the registry in maps guarded by a single mutex.
// Used by unit tests and local development without a database.
type InMemoryStore struct {
	mu           sync.RWMutex
	condominiums map[uuid.UUID]*Condominium
	units        map[uuid.UUID]*Unit
	debts        map[uuid.UUID]*Debt
}

// NewInMemoryStore creates an empty in-memory registry.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		condominiums: make(map[uuid.UUID]*Condominium),
		units:        make(map[uuid.UUID]*Unit),
		debts:        make(map[uuid.UUID]*Debt),
	}
}

func (s *InMemoryStore) CreateCondominium(ctx context.Context, condominium *Condominium) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if condominium.ID == uuid.Nil {
		condominium.ID = uuid.New()
	}
	if condominium.CreatedAt.IsZero() {
		condominium.CreatedAt = time.Now().UTC()
	}
	clone := *condominium
	s.condominiums[condominium.ID] = &clone
	return nil
}

func (s *InMemoryStore) GetCondominium(ctx context.Context, id uuid.UUID) (*Condominium, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	condominium, ok := s.condominiums[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *condominium
	return &clone, nil
}

func (s *InMemoryStore) CreateUnit(ctx context.Context, unit *Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.condominiums[unit.CondominiumID]; !ok {
		return ErrNotFound
	}
	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = time.Now().UTC()
	}
	clone := *unit
	s.units[unit.ID] = &clone
	return nil
}

func (s *InMemoryStore) GetUnit(ctx context.Context, id uuid.UUID) (*Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, ok := s.units[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *unit
	return &clone, nil
}

func (s *InMemoryStore) FindActiveUnit(ctx context.Context, id uuid.UUID) (*Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, ok := s.units[id]
	if !ok || !unit.Active {
		return nil, ErrNotFound
	}
	condominium, ok := s.condominiums[unit.CondominiumID]
	if !ok || !condominium.Active {
		return nil, ErrNotFound
	}
	clone := *unit
	return &clone, nil
}

func (s *InMemoryStore) SetUnitActive(ctx context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unit, ok := s.units[id]
	if !ok {
		return ErrNotFound
	}
	unit.Active = active
	return nil
}

func (s *InMemoryStore) AddDebt(ctx context.Context, debt *Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[debt.UnitID]; !ok {
		return ErrNotFound
	}
	if debt.ID == uuid.Nil {
		debt.ID = uuid.New()
	}
	if debt.CreatedAt.IsZero() {
		debt.CreatedAt = time.Now().UTC()
	}
	clone := *debt
	s.debts[debt.ID] = &clone
	return nil
}

func (s *InMemoryStore) SettleDebt(ctx context.Context, debtID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	debt, ok := s.debts[debtID]
	if !ok {
		return ErrNotFound
	}
	if debt.SettledAt == nil {
		now := time.Now().UTC()
		debt.SettledAt = &now
	}
	return nil
}

func (s *InMemoryStore) ListDebts(ctx context.Context, unitID uuid.UUID) ([]*Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var debts []*Debt
	for _, debt := range s.debts {
		if debt.UnitID == unitID {
			clone := *debt
			debts = append(debts, &clone)
		}
	}
	return debts, nil
}

func (s *InMemoryStore) IsClear(ctx context.Context, unitID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.units[unitID]; !ok {
		return false, ErrNotFound
	}
	for _, debt := range s.debts {
		if debt.UnitID == unitID && !debt.Settled() {
			return false, nil
		}
	}
	return true, nil
}
