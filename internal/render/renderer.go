// Package render produces the certificate document that gets signed and
// served to validators. The output is canonical JSON (RFC 8785) so the bytes
// are stable across renders of the same content.
package render

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clearance-networks/cnd-service/internal/crypto"
	"github.com/clearance-networks/cnd-service/internal/entity"
)

// Document is the renderable content of a clearance certificate.
type Document struct {
	ValidationCode  string       `json:"validationCode"`
	CondominiumName string       `json:"condominiumName"`
	Address         string       `json:"address"`
	UnitCode        string       `json:"unitCode"`
	Block           string       `json:"block,omitempty"`
	Statement       string       `json:"statement"`
	Period          *PeriodRange `json:"period,omitempty"`
	GeneratedAt     time.Time    `json:"generatedAt"`
	ExpiresAt       time.Time    `json:"expiresAt"`
}

// PeriodRange bounds the statement when the requester asked for a dated
// clearance instead of a point-in-time one.
type PeriodRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

const clearanceStatement = "No outstanding debts are registered for this unit as of the generation date."

// Renderer turns certificate input into the signable document bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
}

// CanonicalJSONRenderer renders documents as RFC 8785 canonical JSON.
type CanonicalJSONRenderer struct{}

func NewCanonicalJSONRenderer() *CanonicalJSONRenderer {
	return &CanonicalJSONRenderer{}
}

func (r *CanonicalJSONRenderer) Render(doc Document) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal certificate document: %w", err)
	}
	canonical, err := crypto.CanonicalizeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize certificate document: %w", err)
	}
	return canonical, nil
}

// BuildDocument assembles the document for a unit and its condominium.
// withPeriod adds a 12-month lookback range ending at generation time.
func BuildDocument(code string, condo *entity.Condominium, unit *entity.Unit, withPeriod bool, generatedAt, expiresAt time.Time) Document {
	doc := Document{
		ValidationCode:  code,
		CondominiumName: condo.Name,
		Address:         formatAddress(condo),
		UnitCode:        unit.Code,
		Block:           unit.Block,
		Statement:       clearanceStatement,
		GeneratedAt:     generatedAt.UTC(),
		ExpiresAt:       expiresAt.UTC(),
	}
	if withPeriod {
		doc.Period = &PeriodRange{
			From: generatedAt.UTC().AddDate(-1, 0, 0),
			To:   generatedAt.UTC(),
		}
	}
	return doc
}

func formatAddress(condo *entity.Condominium) string {
	return fmt.Sprintf("%s, %s - %s, %s %s", condo.Street, condo.Number, condo.City, condo.State, condo.ZipCode)
}
