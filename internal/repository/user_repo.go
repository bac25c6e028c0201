package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"collabhub/internal/model"
	"collabhub/internal/transition"
	"collabhub/pkg/rbac"
)

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	query := `
        SELECT id, email, full_name, role, group_id, created_at
        FROM users
        WHERE id = $1
    `
	var u model.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Role,
		&u.GroupID,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, transition.NotFound("user", "user does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GroupLeader returns the leader of a group.
func (r *UserRepository) GroupLeader(ctx context.Context, groupID int) (*model.User, error) {
	query := `
        SELECT u.id, u.email, u.full_name, u.role, u.group_id, u.created_at
        FROM users u
        JOIN groups g ON g.leader_id = u.id
        WHERE g.id = $1
    `
	var u model.User
	err := r.db.QueryRow(ctx, query, groupID).Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Role,
		&u.GroupID,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, transition.NotFound("group", "group has no leader")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// IsGroupLeader reports whether the user leads the group.
func (r *UserRepository) IsGroupLeader(ctx context.Context, userID, groupID int) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM groups WHERE id = $1 AND leader_id = $2)`,
		groupID, userID,
	).Scan(&ok)
	return ok, err
}

// GroupLecturers returns the lecturers assigned to a group.
func (r *UserRepository) GroupLecturers(ctx context.Context, groupID int) ([]model.User, error) {
	query := `
        SELECT u.id, u.email, u.full_name, u.role, u.group_id, u.created_at
        FROM users u
        JOIN group_lecturers gl ON gl.lecturer_id = u.id
        WHERE gl.group_id = $1 AND u.role = $2
        ORDER BY u.id
    `
	rows, err := r.db.Query(ctx, query, groupID, rbac.RoleLecturer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.GroupID, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ProjectUsers returns every user authorized on a project: the business
// owner, its responsible people and the selected group's members.
func (r *UserRepository) ProjectUsers(ctx context.Context, projectID int) ([]model.User, error) {
	query := `
        SELECT DISTINCT u.id, u.email, u.full_name, u.role, u.group_id, u.created_at
        FROM users u
        JOIN project_users pu ON pu.user_id = u.id
        WHERE pu.project_id = $1
        ORDER BY u.id
    `
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.GroupID, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// IsProjectOwner reports whether the user holds edit/owner rights on the
// project (the business itself or a responsible person attached to it).
func (r *UserRepository) IsProjectOwner(ctx context.Context, userID, projectID int) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM projects p WHERE p.id = $1 AND p.business_id = $2
            UNION
            SELECT 1 FROM project_users pu
            JOIN users u ON u.id = pu.user_id
            WHERE pu.project_id = $1 AND pu.user_id = $2 AND u.role = $3
        )
    `, projectID, userID, rbac.RoleResponsiblePerson).Scan(&ok)
	return ok, err
}

// SetTemporaryPassword stores the bcrypt hash of a provisioned password.
func (r *UserRepository) SetTemporaryPassword(ctx context.Context, userID int, hash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET temp_password_hash = $1 WHERE id = $2`,
		hash, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return transition.NotFound("user", "user does not exist")
	}
	return nil
}
