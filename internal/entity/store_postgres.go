package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the registry in postgres. Schema lives in
// sql/schema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a registry store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateCondominium(ctx context.Context, condominium *Condominium) error {
	if condominium.ID == uuid.Nil {
		condominium.ID = uuid.New()
	}
	if condominium.CreatedAt.IsZero() {
		condominium.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO condominiums (id, name, street, number, city, state, zip_code, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		condominium.ID, condominium.Name, condominium.Street, condominium.Number,
		condominium.City, condominium.State, condominium.ZipCode, condominium.Active,
		condominium.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert condominium: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCondominium(ctx context.Context, id uuid.UUID) (*Condominium, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, street, number, city, state, zip_code, active, created_at
		FROM condominiums WHERE id = $1`, id)

	var condominium Condominium
	err := row.Scan(&condominium.ID, &condominium.Name, &condominium.Street,
		&condominium.Number, &condominium.City, &condominium.State,
		&condominium.ZipCode, &condominium.Active, &condominium.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query condominium: %w", err)
	}
	return &condominium, nil
}

func (s *PostgresStore) CreateUnit(ctx context.Context, unit *Unit) error {
	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO units (id, condominium_id, code, block, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		unit.ID, unit.CondominiumID, unit.Code, unit.Block, unit.Active, unit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert unit: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUnit(ctx context.Context, id uuid.UUID) (*Unit, error) {
	return s.scanUnit(s.pool.QueryRow(ctx, `
		SELECT id, condominium_id, code, block, active, created_at
		FROM units WHERE id = $1`, id))
}

func (s *PostgresStore) FindActiveUnit(ctx context.Context, id uuid.UUID) (*Unit, error) {
	return s.scanUnit(s.pool.QueryRow(ctx, `
		SELECT u.id, u.condominium_id, u.code, u.block, u.active, u.created_at
		FROM units u
		JOIN condominiums c ON c.id = u.condominium_id
		WHERE u.id = $1 AND u.active AND c.active`, id))
}

func (s *PostgresStore) scanUnit(row pgx.Row) (*Unit, error) {
	var unit Unit
	err := row.Scan(&unit.ID, &unit.CondominiumID, &unit.Code, &unit.Block,
		&unit.Active, &unit.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query unit: %w", err)
	}
	return &unit, nil
}

func (s *PostgresStore) SetUnitActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE units SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddDebt(ctx context.Context, debt *Debt) error {
	if debt.ID == uuid.Nil {
		debt.ID = uuid.New()
	}
	if debt.CreatedAt.IsZero() {
		debt.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO unit_debts (id, unit_id, description, amount_cents, due_date, settled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		debt.ID, debt.UnitID, debt.Description, debt.AmountCents, debt.DueDate,
		debt.SettledAt, debt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert debt: %w", err)
	}
	return nil
}

func (s *PostgresStore) SettleDebt(ctx context.Context, debtID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE unit_debts SET settled_at = COALESCE(settled_at, now())
		WHERE id = $1`, debtID)
	if err != nil {
		return fmt.Errorf("failed to settle debt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListDebts(ctx context.Context, unitID uuid.UUID) ([]*Debt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, unit_id, description, amount_cents, due_date, settled_at, created_at
		FROM unit_debts WHERE unit_id = $1 ORDER BY due_date`, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query debts: %w", err)
	}
	defer rows.Close()

	var debts []*Debt
	for rows.Next() {
		var debt Debt
		if err := rows.Scan(&debt.ID, &debt.UnitID, &debt.Description,
			&debt.AmountCents, &debt.DueDate, &debt.SettledAt, &debt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, &debt)
	}
	return debts, rows.Err()
}

func (s *PostgresStore) IsClear(ctx context.Context, unitID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM units WHERE id = $1)`, unitID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check unit: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}

	var openDebts bool
	err = s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM unit_debts WHERE unit_id = $1 AND settled_at IS NULL
		)`, unitID).Scan(&openDebts)
	if err != nil {
		return false, fmt.Errorf("failed to check debts: %w", err)
	}
	return !openDebts, nil
}
