package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearance-networks/cnd-service/internal/cnd"
)

// pgUniqueViolation is the postgres error code for unique constraint violations.
const pgUniqueViolation = "23505"

// PostgresStore persists certificate records in postgres. The validation code
// carries a unique constraint; the duplicate-attempt counter relies on a row
// lock so the check-and-increment is indivisible, and first-record creation
// serializes on a transaction-scoped advisory lock because competing INSERTs
// have no row to lock yet.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a record store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, record *cnd.Certificate) error {
	return s.insert(ctx, s.pool, record)
}

// execer is the subset of pool and transaction that insert needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// insert runs the certificate INSERT against db, which is either the pool or
// an open transaction.
func (s *PostgresStore) insert(ctx context.Context, db execer, record *cnd.Certificate) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(ctx, `
		INSERT INTO certificates (
			id, validation_code, unit_id, request_fingerprint, status, channel,
			raw_document, attempt_count, origin_address, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.ValidationCode, record.UnitID, record.RequestFingerprint,
		record.Status, record.Channel, record.RawDocument, record.AttemptCount,
		record.OriginAddress, record.CreatedAt, record.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateCode
		}
		return fmt.Errorf("failed to insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateFirstAttempt(ctx context.Context, record *cnd.Certificate, windowStart time.Time, threshold int) (DuplicateDecision, *cnd.Certificate, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return DecisionFresh, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Competing first-time requests have no row to lock, so serialize the
	// window re-check and the insert on an advisory lock keyed by the
	// fingerprint pair. Whoever gets the lock second sees the winner's row.
	_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || $2))`,
		record.UnitID.String(), record.RequestFingerprint)
	if err != nil {
		return DecisionFresh, nil, fmt.Errorf("failed to take fingerprint lock: %w", err)
	}

	var existingID uuid.UUID
	var attemptCount int
	err = tx.QueryRow(ctx, `
		SELECT id, attempt_count FROM certificates
		WHERE unit_id = $1 AND request_fingerprint = $2 AND created_at > $3
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`,
		record.UnitID, record.RequestFingerprint, windowStart).Scan(&existingID, &attemptCount)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return DecisionFresh, nil, fmt.Errorf("failed to query window record: %w", err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		if err := s.insert(ctx, tx, record); err != nil {
			return DecisionFresh, nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return DecisionFresh, nil, fmt.Errorf("failed to commit certificate: %w", err)
		}
		return DecisionFresh, record, nil
	}

	if attemptCount >= threshold {
		return DecisionRateLimited, nil, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE certificates SET attempt_count = attempt_count + 1 WHERE id = $1`, existingID)
	if err != nil {
		return DecisionFresh, nil, fmt.Errorf("failed to increment attempt count: %w", err)
	}

	existing, err := s.scanRecord(tx.QueryRow(ctx, selectCertificate+` WHERE id = $1`, existingID))
	if err != nil {
		return DecisionFresh, nil, fmt.Errorf("failed to reload window record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return DecisionFresh, nil, fmt.Errorf("failed to commit attempt count: %w", err)
	}
	return DecisionDuplicateAllowed, existing, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*cnd.Certificate, error) {
	return s.scanRecord(s.pool.QueryRow(ctx, selectCertificate+` WHERE id = $1`, id))
}

func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*cnd.Certificate, error) {
	return s.scanRecord(s.pool.QueryRow(ctx, selectCertificate+` WHERE validation_code = $1`, code))
}

const selectCertificate = `
	SELECT id, validation_code, unit_id, request_fingerprint, status, channel,
	       raw_document, signed_document, signature_metadata, attempt_count,
	       origin_address, created_at, signed_at, expires_at
	FROM certificates`

func (s *PostgresStore) scanRecord(row pgx.Row) (*cnd.Certificate, error) {
	var record cnd.Certificate
	var metadataJSON []byte

	err := row.Scan(&record.ID, &record.ValidationCode, &record.UnitID,
		&record.RequestFingerprint, &record.Status, &record.Channel,
		&record.RawDocument, &record.SignedDocument, &metadataJSON,
		&record.AttemptCount, &record.OriginAddress, &record.CreatedAt,
		&record.SignedAt, &record.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query certificate: %w", err)
	}

	if metadataJSON != nil {
		var metadata cnd.SignatureMetadata
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return nil, fmt.Errorf("failed to decode signature metadata: %w", err)
		}
		record.SignatureMetadata = &metadata
	}
	return &record, nil
}

func (s *PostgresStore) CountDuplicateAttempt(ctx context.Context, unitID uuid.UUID, fingerprint string, windowStart time.Time, threshold int) (DuplicateDecision, *cnd.Certificate, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return DecisionFresh, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the newest window record so a concurrent call serializes behind us,
	// then increment only if there is room. No row locked means the
	// fingerprint is fresh by the time we looked.
	var recordID uuid.UUID
	var attemptCount int
	err = tx.QueryRow(ctx, `
		SELECT id, attempt_count FROM certificates
		WHERE unit_id = $1 AND request_fingerprint = $2 AND created_at > $3
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`,
		unitID, fingerprint, windowStart).Scan(&recordID, &attemptCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return DecisionFresh, nil, nil
	}
	if err != nil {
		return DecisionFresh, nil, fmt.Errorf("failed to query window record: %w", err)
	}

	if attemptCount >= threshold {
		return DecisionRateLimited, nil, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE certificates SET attempt_count = attempt_count + 1 WHERE id = $1`, recordID)
	if err != nil {
		return DecisionFresh, nil, fmt.Errorf("failed to increment attempt count: %w", err)
	}

	record, err := s.scanRecord(tx.QueryRow(ctx, selectCertificate+` WHERE id = $1`, recordID))
	if err != nil {
		return DecisionFresh, nil, fmt.Errorf("failed to reload window record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return DecisionFresh, nil, fmt.Errorf("failed to commit attempt count: %w", err)
	}
	return DecisionDuplicateAllowed, record, nil
}

func (s *PostgresStore) MarkSigned(ctx context.Context, id uuid.UUID, signedDocument []byte, metadata cnd.SignatureMetadata, signedAt time.Time) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode signature metadata: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE certificates
		SET status = $2, signed_document = $3, signature_metadata = $4, signed_at = $5
		WHERE id = $1 AND status = $6`,
		id, cnd.StatusSigned, signedDocument, metadataJSON, signedAt, cnd.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark certificate signed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.terminalUpdateMiss(ctx, id)
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE certificates SET status = $2
		WHERE id = $1 AND status = $3`,
		id, cnd.StatusFailed, cnd.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark certificate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.terminalUpdateMiss(ctx, id)
	}
	return nil
}

// terminalUpdateMiss distinguishes "record is gone" from "record already
// reached a terminal state" after a conditional update matched no rows.
func (s *PostgresStore) terminalUpdateMiss(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM certificates WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check certificate existence: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrTerminalState
}
