package signing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearance-networks/cnd-service/internal/cnd"
	"github.com/clearance-networks/cnd-service/internal/cnd/store"
)

// WorkerPool consumes record ids from a bounded queue and applies the
// terminal status transition. Each record is attempted at most once: a
// failure is recorded as FAILED, never re-queued. Callers discover failures
// through validation queries, the issuing caller has already been answered.
type WorkerPool struct {
	records store.Store
	signer  Signer
	logger  *slog.Logger

	queue   chan uuid.UUID
	workers int
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewWorkerPool(records store.Store, signer Signer, logger *slog.Logger, workers, queueSize int, timeout time.Duration) *WorkerPool {
	return &WorkerPool{
		records: records,
		signer:  signer,
		logger:  logger,
		queue:   make(chan uuid.UUID, queueSize),
		workers: workers,
		timeout: timeout,
	}
}

// Enqueue submits a record for signing without blocking. It reports false
// when the queue is full; the record stays PENDING in that case.
func (p *WorkerPool) Enqueue(id uuid.UUID) bool {
	select {
	case p.queue <- id:
		return true
	default:
		return false
	}
}

// Start launches the workers. They run until ctx is cancelled; Wait blocks
// until they have all exited.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

func (p *WorkerPool) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.queue:
			p.process(ctx, id)
		}
	}
}

func (p *WorkerPool) process(ctx context.Context, id uuid.UUID) {
	signCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	record, err := p.records.GetByID(signCtx, id)
	if errors.Is(err, store.ErrNotFound) {
		// The record vanished between enqueue and pickup. Nothing to sign
		// and nothing to fail.
		p.logger.Warn("signing skipped, record not found", slog.String("certificate_id", id.String()))
		return
	}
	if err != nil {
		p.logger.Error("failed to load record for signing",
			slog.String("certificate_id", id.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if record.Status != cnd.StatusPending {
		p.logger.Warn("signing skipped, record already terminal",
			slog.String("certificate_id", id.String()),
			slog.String("status", string(record.Status)),
		)
		return
	}

	signed, metadata, err := p.signer.Sign(signCtx, record.RawDocument)
	if err != nil {
		p.logger.Error("signing failed",
			slog.String("certificate_id", id.String()),
			slog.String("validation_code", record.ValidationCode),
			slog.String("error", err.Error()),
		)
		p.markFailed(ctx, id)
		return
	}

	if err := p.records.MarkSigned(ctx, id, signed, metadata, metadata.SignedAt); err != nil {
		if errors.Is(err, store.ErrTerminalState) {
			p.logger.Warn("record reached terminal state before signing result landed",
				slog.String("certificate_id", id.String()))
			return
		}
		p.logger.Error("failed to store signing result",
			slog.String("certificate_id", id.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	p.logger.Info("certificate signed",
		slog.String("certificate_id", id.String()),
		slog.String("validation_code", record.ValidationCode),
		slog.String("algorithm", metadata.Algorithm),
	)
}

// markFailed uses a fresh context so a signing timeout does not also abort
// recording the failure.
func (p *WorkerPool) markFailed(ctx context.Context, id uuid.UUID) {
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err := p.records.MarkFailed(failCtx, id)
	if err != nil && !errors.Is(err, store.ErrTerminalState) {
		p.logger.Error("failed to mark record failed",
			slog.String("certificate_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}
