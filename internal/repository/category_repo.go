package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"collabhub/internal/model"
	"collabhub/internal/transition"
)

type CategoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCategoryRepository(db *pgxpool.Pool, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{db: db, logger: logger}
}

const categoryColumns = `
        id, phase_id, name, status, expected_result, actual_result,
        actual_end_date, created_at, updated_at`

func scanCategory(row pgx.Row) (*model.Category, error) {
	var c model.Category
	err := row.Scan(
		&c.ID,
		&c.PhaseID,
		&c.Name,
		&c.Status,
		&c.ExpectedResult,
		&c.ActualResult,
		&c.ActualEndDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, transition.NotFound("category", "category does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int) (*model.Category, error) {
	query := `SELECT` + categoryColumns + ` FROM categories WHERE id = $1`
	return scanCategory(r.db.QueryRow(ctx, query, id))
}

func (r *CategoryRepository) ListByPhase(ctx context.Context, phaseID int) ([]model.Category, error) {
	query := `SELECT` + categoryColumns + ` FROM categories WHERE phase_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, phaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) error {
	query := `
        INSERT INTO categories (phase_id, name, status, expected_result)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		c.PhaseID,
		c.Name,
		c.Status,
		c.ExpectedResult,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert category",
			zap.Int("phase_id", c.PhaseID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *CategoryRepository) UpdateState(ctx context.Context, c *model.Category) error {
	query := `
        UPDATE categories
        SET status = $1, actual_end_date = $2, updated_at = NOW()
        WHERE id = $3
    `
	tag, err := r.db.Exec(ctx, query, c.Status, c.ActualEndDate, c.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return transition.NotFound("category", "category does not exist")
	}
	return nil
}

// SetActualResult is the single post-done edit a category permits.
func (r *CategoryRepository) SetActualResult(ctx context.Context, id int, result string) error {
	query := `
        UPDATE categories
        SET actual_result = $1, updated_at = NOW()
        WHERE id = $2 AND actual_result = ''
    `
	tag, err := r.db.Exec(ctx, query, result, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return transition.Conflict("category", "actual result already recorded")
	}
	return nil
}

func (r *CategoryRepository) CountNotDone(ctx context.Context, phaseID int) (int, error) {
	query := `SELECT COUNT(*) FROM categories WHERE phase_id = $1 AND status <> $2`
	var count int
	err := r.db.QueryRow(ctx, query, phaseID, model.CategoryDone).Scan(&count)
	return count, err
}
