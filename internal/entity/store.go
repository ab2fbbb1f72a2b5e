package entity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a condominium, unit or debt does not exist (or
// the unit is deactivated, for the lookups that require an active unit).
var ErrNotFound = errors.New("entity not found")

// Store is the registry persistence contract. Implementations: InMemoryStore
// (tests, dev) and PostgresStore.
type Store interface {
	CreateCondominium(ctx context.Context, condominium *Condominium) error
	GetCondominium(ctx context.Context, id uuid.UUID) (*Condominium, error)

	CreateUnit(ctx context.Context, unit *Unit) error
	GetUnit(ctx context.Context, id uuid.UUID) (*Unit, error)

	// FindActiveUnit returns the unit only when both the unit and its
	// condominium are active. Deactivated units are reported as ErrNotFound,
	// matching how the issuance pipeline treats them.
	FindActiveUnit(ctx context.Context, id uuid.UUID) (*Unit, error)

	SetUnitActive(ctx context.Context, id uuid.UUID, active bool) error

	AddDebt(ctx context.Context, debt *Debt) error
	SettleDebt(ctx context.Context, debtID uuid.UUID) error
	ListDebts(ctx context.Context, unitID uuid.UUID) ([]*Debt, error)

	// IsClear reports whether the unit has no unsettled debts.
	IsClear(ctx context.Context, unitID uuid.UUID) (bool, error)
}
