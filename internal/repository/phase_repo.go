package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"collabhub/internal/model"
	"collabhub/internal/transition"
)

type PhaseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPhaseRepository(db *pgxpool.Pool, logger *zap.Logger) *PhaseRepository {
	return &PhaseRepository{db: db, logger: logger}
}

const phaseColumns = `
        id, project_id, phase_number, status, cost_status,
        start_date, expected_end_date, actual_end_date,
        expected_cost_total, actual_cost_total, created_at, updated_at`

func scanPhase(row pgx.Row) (*model.Phase, error) {
	var p model.Phase
	err := row.Scan(
		&p.ID,
		&p.ProjectID,
		&p.PhaseNumber,
		&p.Status,
		&p.CostStatus,
		&p.StartDate,
		&p.ExpectedEndDate,
		&p.ActualEndDate,
		&p.ExpectedCostTotal,
		&p.ActualCostTotal,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, transition.NotFound("phase", "phase does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PhaseRepository) GetByID(ctx context.Context, id int) (*model.Phase, error) {
	query := `SELECT` + phaseColumns + ` FROM phases WHERE id = $1`
	return scanPhase(r.db.QueryRow(ctx, query, id))
}

func (r *PhaseRepository) GetByNumber(ctx context.Context, projectID, phaseNumber int) (*model.Phase, error) {
	query := `SELECT` + phaseColumns + ` FROM phases WHERE project_id = $1 AND phase_number = $2`
	return scanPhase(r.db.QueryRow(ctx, query, projectID, phaseNumber))
}

func (r *PhaseRepository) ListByProject(ctx context.Context, projectID int) ([]model.Phase, error) {
	query := `SELECT` + phaseColumns + ` FROM phases WHERE project_id = $1 ORDER BY phase_number`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phases []model.Phase
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, err
		}
		phases = append(phases, *p)
	}
	return phases, rows.Err()
}

func (r *PhaseRepository) CountByProject(ctx context.Context, projectID int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM phases WHERE project_id = $1`, projectID).Scan(&count)
	return count, err
}

func (r *PhaseRepository) Create(ctx context.Context, p *model.Phase) error {
	query := `
        INSERT INTO phases (project_id, phase_number, status, cost_status,
                            start_date, expected_end_date)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.ProjectID,
		p.PhaseNumber,
		p.Status,
		p.CostStatus,
		p.StartDate,
		p.ExpectedEndDate,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert phase",
			zap.Int("project_id", p.ProjectID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// UpdateState persists the full status outcome of a phase transition in
// one statement: status, cost_status and actual_end_date.
func (r *PhaseRepository) UpdateState(ctx context.Context, p *model.Phase) error {
	query := `
        UPDATE phases
        SET status = $1, cost_status = $2, actual_end_date = $3, updated_at = NOW()
        WHERE id = $4
    `
	tag, err := r.db.Exec(ctx, query, p.Status, p.CostStatus, p.ActualEndDate, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return transition.NotFound("phase", "phase does not exist")
	}
	return nil
}

func (r *PhaseRepository) UpdateCostStatus(ctx context.Context, id int, status model.CostState) error {
	query := `UPDATE phases SET cost_status = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return transition.NotFound("phase", "phase does not exist")
	}
	return nil
}

// TransferWithCategoryCascade marks the phase's funds transferred and
// cascades every open category to done in a single transaction. A
// gateway confirmation either lands completely or not at all.
func (r *PhaseRepository) TransferWithCategoryCascade(ctx context.Context, phaseID int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE phases SET cost_status = $1, updated_at = NOW()
         WHERE id = $2 AND cost_status = $3`,
		model.CostTransferred, phaseID, model.CostNotTransferred,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return transition.Invalid("payment", "phase funds already moved")
	}

	if _, err := tx.Exec(ctx,
		`UPDATE categories
         SET status = $1,
             actual_end_date = COALESCE(actual_end_date, NOW()),
             updated_at = NOW()
         WHERE phase_id = $2 AND status <> $1`,
		model.CategoryDone, phaseID,
	); err != nil {
		r.logger.Error("Payment category cascade failed, rolling back",
			zap.Int("phase_id", phaseID),
			zap.Error(err),
		)
		return err
	}

	return tx.Commit(ctx)
}

// ListOverdue returns phases eligible for the escalation sweep: neither
// warning nor done, with an expected end date on or before the cutoff.
func (r *PhaseRepository) ListOverdue(ctx context.Context, cutoff time.Time) ([]model.Phase, error) {
	query := `SELECT` + phaseColumns + `
        FROM phases
        WHERE status NOT IN ($1, $2)
          AND expected_end_date <= $3
        ORDER BY id
    `
	rows, err := r.db.Query(ctx, query, model.PhaseWarning, model.PhaseDone, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phases []model.Phase
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, err
		}
		phases = append(phases, *p)
	}
	return phases, rows.Err()
}

// DeleteCascade removes a phase together with its categories, costs and
// evidence in a single transaction. Any failure rolls back every step.
func (r *PhaseRepository) DeleteCascade(ctx context.Context, phaseID int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`DELETE FROM evidence
         WHERE cost_id IN (
             SELECT c.id FROM costs c
             JOIN categories cat ON cat.id = c.category_id
             WHERE cat.phase_id = $1
         )`,
		`DELETE FROM costs
         WHERE category_id IN (SELECT id FROM categories WHERE phase_id = $1)`,
		`DELETE FROM categories WHERE phase_id = $1`,
		`DELETE FROM phases WHERE id = $1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(ctx, q, phaseID); err != nil {
			r.logger.Error("Phase cascade delete failed, rolling back",
				zap.Int("phase_id", phaseID),
				zap.Error(err),
			)
			return err
		}
	}

	return tx.Commit(ctx)
}
