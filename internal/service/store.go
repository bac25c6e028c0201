package service

import (
	"context"
	"time"

	"collabhub/internal/model"
)

// Store interfaces consumed by the orchestrator, the sweep and the
// payment adapter. The pgx repositories in internal/repository satisfy
// them; tests substitute in-memory fakes.

type ProjectStore interface {
	GetByID(ctx context.Context, id int) (*model.Project, error)
	UpdateStatus(ctx context.Context, id int, status model.ProjectStatus) error
}

type PhaseStore interface {
	GetByID(ctx context.Context, id int) (*model.Phase, error)
	GetByNumber(ctx context.Context, projectID, phaseNumber int) (*model.Phase, error)
	ListByProject(ctx context.Context, projectID int) ([]model.Phase, error)
	CountByProject(ctx context.Context, projectID int) (int, error)
	Create(ctx context.Context, p *model.Phase) error
	UpdateState(ctx context.Context, p *model.Phase) error
	UpdateCostStatus(ctx context.Context, id int, status model.CostState) error
	TransferWithCategoryCascade(ctx context.Context, phaseID int) error
	ListOverdue(ctx context.Context, cutoff time.Time) ([]model.Phase, error)
	DeleteCascade(ctx context.Context, phaseID int) error
}

type CategoryStore interface {
	GetByID(ctx context.Context, id int) (*model.Category, error)
	ListByPhase(ctx context.Context, phaseID int) ([]model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	UpdateState(ctx context.Context, c *model.Category) error
	SetActualResult(ctx context.Context, id int, result string) error
	CountNotDone(ctx context.Context, phaseID int) (int, error)
}

type CostStore interface {
	GetByID(ctx context.Context, id int) (*model.Cost, error)
	GetByCategory(ctx context.Context, categoryID int) (*model.Cost, error)
	CreateWithPhaseTotal(ctx context.Context, c *model.Cost, phaseID int) error
	SetActualCost(ctx context.Context, costID, phaseID int, actual int64) error
	UpdateStatus(ctx context.Context, id int, status model.CostState) error
	CreateEvidence(ctx context.Context, e *model.Evidence) error
	ListEvidence(ctx context.Context, costID int) ([]model.Evidence, error)
}

type PitchingStore interface {
	GetByID(ctx context.Context, id int) (*model.RegisterPitching, error)
	GetSelected(ctx context.Context, projectID int) (*model.RegisterPitching, error)
	ListByProject(ctx context.Context, projectID int) ([]model.RegisterPitching, error)
	Create(ctx context.Context, p *model.RegisterPitching) error
	Select(ctx context.Context, projectID, pitchingID int) error
}

type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id int) (*model.Notification, error)
	MarkRead(ctx context.Context, id int) error
	CountUnread(ctx context.Context, receiverEmail string) (int, error)
	ClaimPending(ctx context.Context, limit int) ([]model.Notification, error)
	MarkDispatchFailed(ctx context.Context, id int) (exhausted bool, err error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
	GroupLeader(ctx context.Context, groupID int) (*model.User, error)
	IsGroupLeader(ctx context.Context, userID, groupID int) (bool, error)
	GroupLecturers(ctx context.Context, groupID int) ([]model.User, error)
	ProjectUsers(ctx context.Context, projectID int) ([]model.User, error)
	IsProjectOwner(ctx context.Context, userID, projectID int) (bool, error)
	SetTemporaryPassword(ctx context.Context, userID int, hash string) error
}
