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

type PitchingRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPitchingRepository(db *pgxpool.Pool, logger *zap.Logger) *PitchingRepository {
	return &PitchingRepository{db: db, logger: logger}
}

const pitchingColumns = `
        id, project_id, group_id, status, created_at, updated_at`

func scanPitching(row pgx.Row) (*model.RegisterPitching, error) {
	var p model.RegisterPitching
	err := row.Scan(
		&p.ID,
		&p.ProjectID,
		&p.GroupID,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, transition.NotFound("pitching", "pitching does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PitchingRepository) GetByID(ctx context.Context, id int) (*model.RegisterPitching, error) {
	query := `SELECT` + pitchingColumns + ` FROM register_pitchings WHERE id = $1`
	return scanPitching(r.db.QueryRow(ctx, query, id))
}

// GetSelected returns the one selected pitching of a project.
func (r *PitchingRepository) GetSelected(ctx context.Context, projectID int) (*model.RegisterPitching, error) {
	query := `SELECT` + pitchingColumns + ` FROM register_pitchings WHERE project_id = $1 AND status = $2`
	return scanPitching(r.db.QueryRow(ctx, query, projectID, model.PitchingSelected))
}

func (r *PitchingRepository) ListByProject(ctx context.Context, projectID int) ([]model.RegisterPitching, error) {
	query := `SELECT` + pitchingColumns + ` FROM register_pitchings WHERE project_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RegisterPitching
	for rows.Next() {
		p, err := scanPitching(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PitchingRepository) Create(ctx context.Context, p *model.RegisterPitching) error {
	query := `
        INSERT INTO register_pitchings (project_id, group_id, status)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query, p.ProjectID, p.GroupID, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return transition.Conflict("pitching", "group already registered for this project")
		}
		r.logger.Error("Failed to insert pitching",
			zap.Int("project_id", p.ProjectID),
			zap.Int("group_id", p.GroupID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Select marks one pitching selected, rejects every sibling and flips the
// project to processing, all in one transaction.
func (r *PitchingRepository) Select(ctx context.Context, projectID, pitchingID int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE register_pitchings SET status = $1, updated_at = NOW()
         WHERE id = $2 AND project_id = $3 AND status = $4`,
		model.PitchingSelected, pitchingID, projectID, model.PitchingPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return transition.Precondition("pitching", "pitching is not pending on this project")
	}

	if _, err := tx.Exec(ctx,
		`UPDATE register_pitchings SET status = $1, updated_at = NOW()
         WHERE project_id = $2 AND id <> $3`,
		model.PitchingRejected, projectID, pitchingID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE projects SET status = $1, updated_at = NOW() WHERE id = $2`,
		model.ProjectProcessing, projectID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
