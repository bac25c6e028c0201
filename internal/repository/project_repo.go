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

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int) (*model.Project, error) {
	query := `
        SELECT id, business_id, title, status, business_type,
               start_date, expected_end_date, actual_end_date,
               created_at, updated_at
        FROM projects
        WHERE id = $1
    `
	var p model.Project
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.BusinessID,
		&p.Title,
		&p.Status,
		&p.BusinessType,
		&p.StartDate,
		&p.ExpectedEndDate,
		&p.ActualEndDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, transition.NotFound("project", "project does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, id int, status model.ProjectStatus) error {
	query := `UPDATE projects SET status = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update project status",
			zap.Int("project_id", id),
			zap.Error(err),
		)
		return err
	}
	if tag.RowsAffected() == 0 {
		return transition.NotFound("project", "project does not exist")
	}
	return nil
}
