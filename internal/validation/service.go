// Package validation answers read-only questions about issued certificates:
// status by code, artifact download and hash verification. It never mutates
// records.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clearance-networks/cnd-service/internal/cnd"
	"github.com/clearance-networks/cnd-service/internal/cnd/store"
	"github.com/clearance-networks/cnd-service/internal/crypto"
	"github.com/clearance-networks/cnd-service/internal/entity"
	"github.com/clearance-networks/cnd-service/internal/logger"
)

// Gateway serves validation queries against the record store.
type Gateway struct {
	records  store.Store
	entities entity.Store
}

func NewGateway(records store.Store, entities entity.Store) *Gateway {
	return &Gateway{records: records, entities: entities}
}

// Validate returns the status payload for a validation code. A certificate
// is valid if and only if it reached SIGNED.
func (g *Gateway) Validate(ctx context.Context, code string) (*cnd.ValidationResponse, error) {
	record, err := g.records.GetByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, cnd.NewNotFoundError(fmt.Sprintf("no certificate with code %s", code))
	}
	if err != nil {
		return nil, cnd.WrapInternalError(err, "failed to look up certificate")
	}

	resp := &cnd.ValidationResponse{
		ValidationCode:    record.ValidationCode,
		Valid:             record.Status == cnd.StatusSigned,
		Status:            record.Status,
		IssuedAt:          record.CreatedAt,
		SignedAt:          record.SignedAt,
		ExpiresAt:         record.ExpiresAt,
		SignatureMetadata: record.SignatureMetadata,
	}
	if record.SignatureMetadata != nil {
		resp.DocumentHash = record.SignatureMetadata.DocumentHash
	}

	// Display metadata is best-effort: a deactivated or deleted unit does not
	// invalidate an already-issued certificate.
	unit, err := g.entities.GetUnit(ctx, record.UnitID)
	if err != nil {
		logger.ContextRequestLogger(ctx).Warn("unit lookup failed during validation",
			slog.String("validation_code", code),
			slog.String("unit_id", record.UnitID.String()),
		)
		return resp, nil
	}
	resp.UnitCode = unit.Code
	resp.Block = unit.Block
	if condo, err := g.entities.GetCondominium(ctx, unit.CondominiumID); err == nil {
		resp.CondominiumName = condo.Name
	}
	return resp, nil
}

// FetchArtifact returns the best-available document bytes for a code,
// preferring the signed artifact. signed reports which one was returned.
func (g *Gateway) FetchArtifact(ctx context.Context, code string) (data []byte, signed bool, err error) {
	record, err := g.records.GetByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, cnd.NewNotFoundError(fmt.Sprintf("no certificate with code %s", code))
	}
	if err != nil {
		return nil, false, cnd.WrapInternalError(err, "failed to look up certificate")
	}

	switch {
	case len(record.SignedDocument) > 0:
		return record.SignedDocument, true, nil
	case len(record.RawDocument) > 0:
		return record.RawDocument, false, nil
	default:
		// The lifecycle always stores a raw document at creation, so an
		// empty record points at data corruption.
		return nil, false, cnd.NewNotAvailableError(fmt.Sprintf("certificate %s has no stored document", code))
	}
}

// VerifyHash reports whether candidate matches the digest of the stored
// artifact. Comparison is trimmed and case-insensitive. Any internal failure
// collapses to false; this check never surfaces an error.
func (g *Gateway) VerifyHash(ctx context.Context, code string, candidate string) bool {
	data, _, err := g.FetchArtifact(ctx, code)
	if err != nil {
		return false
	}
	computed, err := crypto.Hash(data)
	if err != nil {
		return false
	}
	return strings.EqualFold(computed, strings.TrimSpace(candidate))
}
