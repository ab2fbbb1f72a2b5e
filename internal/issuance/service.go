// Package issuance implements the certificate issuance pipeline: eligibility
// check, duplicate-request guard, validation code generation, document
// rendering and persistence of the PENDING record. Signing happens after the
// response is returned, on the signing worker pool.
package issuance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clearance-networks/cnd-service/internal/cnd"
	"github.com/clearance-networks/cnd-service/internal/cnd/store"
	"github.com/clearance-networks/cnd-service/internal/crypto"
	"github.com/clearance-networks/cnd-service/internal/entity"
	"github.com/clearance-networks/cnd-service/internal/logger"
	"github.com/clearance-networks/cnd-service/internal/render"
)

// SigningScheduler hands a persisted record over to the asynchronous signing
// pipeline. Enqueue must not block the request path; it reports whether the
// record was accepted for signing.
type SigningScheduler interface {
	Enqueue(id uuid.UUID) bool
}

// Options fixes the issuance policy knobs at construction time.
type Options struct {
	// Validity is the certificate lifetime, fixed at creation
	Validity time.Duration

	// Window and Threshold parameterize the duplicate-request guard
	Window    time.Duration
	Threshold int

	// CodeMaxRetries bounds regeneration when a validation code collides
	CodeMaxRetries int

	// ValidationBaseURL is the public base for validation links
	ValidationBaseURL string
}

// Coordinator orchestrates issuance. The request path is synchronous up to
// the PENDING record commit; everything after that is the signing worker's
// problem.
type Coordinator struct {
	entities entity.Store
	records  store.Store
	guard    *FingerprintGuard
	codes    CodeGenerator
	renderer render.Renderer
	signing  SigningScheduler
	opts     Options
}

func NewCoordinator(entities entity.Store, records store.Store, codes CodeGenerator, renderer render.Renderer, signing SigningScheduler, opts Options) *Coordinator {
	return &Coordinator{
		entities: entities,
		records:  records,
		guard:    NewFingerprintGuard(records, opts.Window, opts.Threshold),
		codes:    codes,
		renderer: renderer,
		signing:  signing,
		opts:     opts,
	}
}

// Issue runs the issuance pipeline for a unit.
//
// A duplicate request inside the guard window re-surfaces the existing
// record instead of creating a second one: the caller gets the same
// validation code back and the record's attempt counter goes up. Requests
// past the attempt threshold are rejected with a rate-limited error and no
// side effect.
func (c *Coordinator) Issue(ctx context.Context, unitID uuid.UUID, req cnd.IssueRequest, originAddress string) (*cnd.IssueResponse, error) {
	reqLogger := logger.ContextRequestLogger(ctx)

	unit, err := c.entities.FindActiveUnit(ctx, unitID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, cnd.NewNotFoundError(fmt.Sprintf("no active unit with id %s", unitID))
	}
	if err != nil {
		return nil, cnd.WrapInternalError(err, "failed to look up unit")
	}

	condo, err := c.entities.GetCondominium(ctx, unit.CondominiumID)
	if err != nil {
		return nil, cnd.WrapInternalError(err, "failed to look up condominium")
	}

	clear, err := c.entities.IsClear(ctx, unitID)
	if err != nil {
		return nil, cnd.WrapInternalError(err, "failed to check unit debt status")
	}
	if !clear {
		return nil, cnd.NewIneligibleError("unit has outstanding debts")
	}

	now := time.Now().UTC()
	fingerprint := Fingerprint(unitID, req.WithPeriod, req.WithSignature)
	windowStart := now.Add(-c.opts.Window)

	// Fast path: a known in-window duplicate skips the render work. The
	// verdict is advisory; CreateFirstAttempt below re-checks atomically.
	decision, existing, err := c.guard.Check(ctx, unitID, fingerprint, now)
	if err != nil {
		return nil, cnd.WrapInternalError(err, "failed duplicate-request check")
	}
	switch decision {
	case store.DecisionRateLimited:
		return nil, cnd.NewRateLimitedError("too many identical requests, try again later")
	case store.DecisionDuplicateAllowed:
		return c.resurface(ctx, existing)
	}

	var record *cnd.Certificate
	for attempt := 0; attempt < c.opts.CodeMaxRetries; attempt++ {
		code := c.codes.Generate(now)
		doc := render.BuildDocument(code, condo, unit, req.WithPeriod, now, now.Add(c.opts.Validity))

		raw, err := c.renderer.Render(doc)
		if err != nil {
			return nil, cnd.WrapRenderingError(err, "failed to render certificate document")
		}

		candidate := &cnd.Certificate{
			ID:                 uuid.New(),
			ValidationCode:     code,
			UnitID:             unitID,
			RequestFingerprint: fingerprint,
			Status:             cnd.StatusPending,
			Channel:            req.Channel,
			RawDocument:        raw,
			AttemptCount:       1,
			OriginAddress:      originAddress,
			CreatedAt:          now,
			ExpiresAt:          now.Add(c.opts.Validity),
		}

		// The window re-check and the insert are a single store operation:
		// a concurrent identical request that won the race surfaces here as
		// a duplicate instead of a second record.
		decision, existing, err := c.records.CreateFirstAttempt(ctx, candidate, windowStart, c.opts.Threshold)
		if errors.Is(err, store.ErrDuplicateCode) {
			reqLogger.Debug("validation code collision, regenerating", slog.String("validation_code", code))
			continue
		}
		if err != nil {
			return nil, cnd.WrapInternalError(err, "failed to persist certificate record")
		}
		switch decision {
		case store.DecisionRateLimited:
			return nil, cnd.NewRateLimitedError("too many identical requests, try again later")
		case store.DecisionDuplicateAllowed:
			return c.resurface(ctx, existing)
		}
		record = candidate
		break
	}
	if record == nil {
		return nil, cnd.NewCodeGenerationExhaustedError(
			fmt.Sprintf("could not generate a unique validation code in %d attempts", c.opts.CodeMaxRetries))
	}

	if !c.signing.Enqueue(record.ID) {
		// The record stays PENDING; a later validation query surfaces the
		// stall. The caller already has a committed record, so this is not
		// an issuance failure.
		reqLogger.Warn("signing queue full, record left pending",
			slog.String("certificate_id", record.ID.String()),
			slog.String("validation_code", record.ValidationCode),
		)
	}

	reqLogger.Info("certificate issued",
		slog.String("certificate_id", record.ID.String()),
		slog.String("validation_code", record.ValidationCode),
		slog.String("unit_id", unitID.String()),
		slog.String("channel", record.Channel),
	)
	return c.responseFor(record)
}

// resurface answers a duplicate-but-allowed request with the existing
// record's outcome: same validation code, same document hash.
func (c *Coordinator) resurface(ctx context.Context, existing *cnd.Certificate) (*cnd.IssueResponse, error) {
	logger.ContextRequestLogger(ctx).Info("duplicate issuance request re-surfaced",
		slog.String("validation_code", existing.ValidationCode),
		slog.Int("attempt_count", existing.AttemptCount),
	)
	return c.responseFor(existing)
}

// responseFor builds the accepted-issuance payload. The document hash is the
// digest of the raw rendered artifact; the signed hash only exists once the
// worker finishes.
func (c *Coordinator) responseFor(record *cnd.Certificate) (*cnd.IssueResponse, error) {
	rawHash, err := crypto.Hash(record.RawDocument)
	if err != nil {
		return nil, cnd.WrapInternalError(err, "failed to hash rendered document")
	}
	return &cnd.IssueResponse{
		ValidationCode: record.ValidationCode,
		Status:         record.Status,
		IssuedAt:       record.CreatedAt,
		ExpiresAt:      record.ExpiresAt,
		ValidationURL:  fmt.Sprintf("%s/api/cnd/validate/%s", c.opts.ValidationBaseURL, record.ValidationCode),
		DocumentHash:   rawHash,
	}, nil
}
