package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"collabhub/internal/model"
	"collabhub/internal/transition"
)

type CostRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCostRepository(db *pgxpool.Pool, logger *zap.Logger) *CostRepository {
	return &CostRepository{db: db, logger: logger}
}

const costColumns = `
        id, category_id, expected_cost, actual_cost, status, created_at, updated_at`

func scanCost(row pgx.Row) (*model.Cost, error) {
	var c model.Cost
	err := row.Scan(
		&c.ID,
		&c.CategoryID,
		&c.ExpectedCost,
		&c.ActualCost,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, transition.NotFound("cost", "cost does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CostRepository) GetByID(ctx context.Context, id int) (*model.Cost, error) {
	query := `SELECT` + costColumns + ` FROM costs WHERE id = $1`
	return scanCost(r.db.QueryRow(ctx, query, id))
}

func (r *CostRepository) GetByCategory(ctx context.Context, categoryID int) (*model.Cost, error) {
	query := `SELECT` + costColumns + ` FROM costs WHERE category_id = $1`
	return scanCost(r.db.QueryRow(ctx, query, categoryID))
}

// CreateWithPhaseTotal inserts the cost and bumps the owning phase's
// expected_cost_total in one transaction. The increment is a single SQL
// statement, so concurrent creations on sibling categories cannot lose an
// update. A second cost on the same category trips the unique constraint
// and surfaces as a conflict.
func (r *CostRepository) CreateWithPhaseTotal(ctx context.Context, c *model.Cost, phaseID int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert := `
        INSERT INTO costs (category_id, expected_cost, status)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at
    `
	err = tx.QueryRow(ctx, insert, c.CategoryID, c.ExpectedCost, c.Status).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return transition.Conflict("cost", "category already has a cost")
		}
		r.logger.Error("Failed to insert cost",
			zap.Int("category_id", c.CategoryID),
			zap.Error(err),
		)
		return err
	}

	bump := `
        UPDATE phases
        SET expected_cost_total = expected_cost_total + $1, updated_at = NOW()
        WHERE id = $2
    `
	if _, err := tx.Exec(ctx, bump, c.ExpectedCost, phaseID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SetActualCost records the settled amount and adds the delta to the
// phase's actual_cost_total inside one transaction.
func (r *CostRepository) SetActualCost(ctx context.Context, costID, phaseID int, actual int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var previous *int64
	err = tx.QueryRow(ctx,
		`SELECT actual_cost FROM costs WHERE id = $1 FOR UPDATE`, costID,
	).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return transition.NotFound("cost", "cost does not exist")
	}
	if err != nil {
		return err
	}

	delta := actual
	if previous != nil {
		delta -= *previous
	}

	if _, err := tx.Exec(ctx,
		`UPDATE costs SET actual_cost = $1, updated_at = NOW() WHERE id = $2`,
		actual, costID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE phases SET actual_cost_total = actual_cost_total + $1, updated_at = NOW() WHERE id = $2`,
		delta, phaseID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *CostRepository) UpdateStatus(ctx context.Context, id int, status model.CostState) error {
	query := `UPDATE costs SET status = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return transition.NotFound("cost", "cost does not exist")
	}
	return nil
}

func (r *CostRepository) CreateEvidence(ctx context.Context, e *model.Evidence) error {
	query := `
        INSERT INTO evidence (cost_id, description, image_url)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, e.CostID, e.Description, e.ImageURL).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert evidence",
			zap.Int("cost_id", e.CostID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *CostRepository) ListEvidence(ctx context.Context, costID int) ([]model.Evidence, error) {
	query := `
        SELECT id, cost_id, description, image_url, created_at
        FROM evidence
        WHERE cost_id = $1
        ORDER BY id
    `
	rows, err := r.db.Query(ctx, query, costID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Evidence
	for rows.Next() {
		var e model.Evidence
		if err := rows.Scan(&e.ID, &e.CostID, &e.Description, &e.ImageURL, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
