// Package entity holds the condominium/unit registry the issuance pipeline
// consults for eligibility. The registry is a collaborator of the pipeline:
// issuance only needs FindActiveUnit and IsClear, the rest of the surface
// exists for the admin endpoints that manage the registry.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Condominium is the building/association a unit belongs to.
type Condominium struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Street  string    `json:"street"`
	Number  string    `json:"number"`
	City    string    `json:"city"`
	State   string    `json:"state"`
	ZipCode string    `json:"zipCode"`
	Active  bool      `json:"active"`

	CreatedAt time.Time `json:"createdAt"`
}

// Unit is a single condominium unit (apartment/lot) that certificates are
// issued for.
type Unit struct {
	ID            uuid.UUID `json:"id"`
	CondominiumID uuid.UUID `json:"condominiumId"`
	Code          string    `json:"code"`
	Block         string    `json:"block"`
	Active        bool      `json:"active"`

	CreatedAt time.Time `json:"createdAt"`
}

// Debt is an open or settled charge against a unit. A unit is eligible for a
// clearance certificate only when it has no unsettled debts.
type Debt struct {
	ID          uuid.UUID  `json:"id"`
	UnitID      uuid.UUID  `json:"unitId"`
	Description string     `json:"description"`
	AmountCents int64      `json:"amountCents"`
	DueDate     time.Time  `json:"dueDate"`
	SettledAt   *time.Time `json:"settledAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Settled reports whether the debt has been paid.
func (d *Debt) Settled() bool {
	return d.SettledAt != nil
}
