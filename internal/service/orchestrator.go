package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"collabhub/internal/fanout"
	"collabhub/internal/model"
	"collabhub/internal/transition"
	"collabhub/pkg/metrics"
	"collabhub/pkg/rbac"
)

// Orchestrator sequences every multi-entity lifecycle operation: it
// gathers the facts, runs the pure transition engine, persists the
// accepted result and only then fires the best-effort side effects
// (fan-out pushes, notifications, provisioning emails).
type Orchestrator struct {
	projects      ProjectStore
	phases        PhaseStore
	categories    CategoryStore
	costs         CostStore
	pitchings     PitchingStore
	notifications NotificationStore
	users         UserStore
	bus           fanout.Bus
	notifier      *Notifier
	mailer        Mailer
	hashPassword  func(string) (string, error)
	now           func() time.Time
	logger        *zap.Logger
}

type OrchestratorDeps struct {
	Projects      ProjectStore
	Phases        PhaseStore
	Categories    CategoryStore
	Costs         CostStore
	Pitchings     PitchingStore
	Notifications NotificationStore
	Users         UserStore
	Bus           fanout.Bus
	Notifier      *Notifier
	Mailer        Mailer
	HashPassword  func(string) (string, error)
	Now           func() time.Time
}

func NewOrchestrator(deps OrchestratorDeps, logger *zap.Logger) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{
		projects:      deps.Projects,
		phases:        deps.Phases,
		categories:    deps.Categories,
		costs:         deps.Costs,
		pitchings:     deps.Pitchings,
		notifications: deps.Notifications,
		users:         deps.Users,
		bus:           deps.Bus,
		notifier:      deps.Notifier,
		mailer:        deps.Mailer,
		hashPassword:  deps.HashPassword,
		now:           deps.Now,
		logger:        logger,
	}
}

// CreatePhaseInput carries the caller-supplied phase attributes.
type CreatePhaseInput struct {
	StartDate       time.Time
	ExpectedEndDate time.Time
}

// CreatePhase appends the next phase to a processing project. The new
// phase's dates must nest inside the project window and start no earlier
// than the previous phase's expected end.
func (o *Orchestrator) CreatePhase(ctx context.Context, projectID int, in CreatePhaseInput, actor model.Principal) (*model.Phase, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionCreatePhase); err != nil {
		return nil, transition.Forbidden("phase", "role may not create phases")
	}

	project, err := o.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := o.requireLeaderOfSelectedGroup(ctx, projectID, actor); err != nil {
		return nil, err
	}
	if project.Status != model.ProjectProcessing {
		return nil, transition.Precondition("phase", "project is not processing")
	}

	count, err := o.phases.CountByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if count >= model.MaxPhasesPerProject {
		return nil, transition.Precondition("phase", "project already has the maximum number of phases")
	}

	if in.StartDate.Before(project.StartDate) || in.ExpectedEndDate.After(project.ExpectedEndDate) {
		return nil, transition.Precondition("phase", "phase dates fall outside the project window")
	}
	if !in.ExpectedEndDate.After(in.StartDate) {
		return nil, transition.Precondition("phase", "phase must end after it starts")
	}
	if count > 0 {
		prev, err := o.phases.GetByNumber(ctx, projectID, count)
		if err != nil {
			return nil, err
		}
		if in.StartDate.Before(prev.ExpectedEndDate) {
			return nil, transition.Precondition("phase", "phase starts before the previous phase ends")
		}
	}

	phase := &model.Phase{
		ProjectID:       projectID,
		PhaseNumber:     count + 1,
		Status:          model.PhasePending,
		CostStatus:      model.CostNotTransferred,
		StartDate:       in.StartDate,
		ExpectedEndDate: in.ExpectedEndDate,
	}
	if err := o.phases.Create(ctx, phase); err != nil {
		return nil, err
	}

	o.pushPhases(ctx, projectID)
	return phase, nil
}

// CreateCategoryInput carries the caller-supplied category attributes.
type CreateCategoryInput struct {
	Name           string
	ExpectedResult string
}

// CreateCategory adds a unit of work to a pending or processing phase.
func (o *Orchestrator) CreateCategory(ctx context.Context, phaseID int, in CreateCategoryInput, actor model.Principal) (*model.Category, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionCreateCategory); err != nil {
		return nil, transition.Forbidden("category", "role may not create categories")
	}

	phase, err := o.phases.GetByID(ctx, phaseID)
	if err != nil {
		return nil, err
	}
	if err := o.requireLeaderOfSelectedGroup(ctx, phase.ProjectID, actor); err != nil {
		return nil, err
	}
	if phase.Status != model.PhasePending && phase.Status != model.PhaseProcessing {
		return nil, transition.Precondition("category", "phase no longer accepts categories")
	}

	category := &model.Category{
		PhaseID:        phaseID,
		Name:           in.Name,
		Status:         model.CategoryTodo,
		ExpectedResult: in.ExpectedResult,
	}
	if err := o.categories.Create(ctx, category); err != nil {
		return nil, err
	}

	o.pushCategories(ctx, phaseID)
	return category, nil
}

// ChangeCategoryStatus runs the category state machine and persists the
// accepted result. When the category reaches done, sibling completeness
// is checked and reported (the phase itself finishes only via an
// explicit ChangePhaseStatus call).
func (o *Orchestrator) ChangeCategoryStatus(ctx context.Context, categoryID int, target model.CategoryStatus, actor model.Principal) (*model.Category, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionChangeCategory); err != nil {
		return nil, transition.Forbidden("category", "role may not change category status")
	}

	category, err := o.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	phase, err := o.phases.GetByID(ctx, category.PhaseID)
	if err != nil {
		return nil, err
	}

	updated, err := transition.Category(*category, target, transition.CategoryFacts{
		PhaseStatus: phase.Status,
	}, o.now())
	metrics.RecordTransition("category", err == nil)
	if err != nil {
		return nil, err
	}

	if err := o.categories.UpdateState(ctx, &updated); err != nil {
		return nil, err
	}

	o.pushCategories(ctx, phase.ID)

	if updated.Status == model.CategoryDone {
		// Advisory only: the phase finishes via an explicit, separately
		// authorized ChangePhaseStatus call.
		remaining, err := o.categories.CountNotDone(ctx, phase.ID)
		if err == nil && remaining == 0 {
			o.logger.Info("All categories of phase are done",
				zap.Int("phase_id", phase.ID),
			)
		}
	}
	return &updated, nil
}

// CheckPhaseCanBeDone reports whether every category of the phase is
// done. Advisory: it never mutates anything.
func (o *Orchestrator) CheckPhaseCanBeDone(ctx context.Context, phaseID int) (bool, error) {
	if _, err := o.phases.GetByID(ctx, phaseID); err != nil {
		return false, err
	}
	remaining, err := o.categories.CountNotDone(ctx, phaseID)
	if err != nil {
		return false, err
	}
	return remaining == 0, nil
}

// CreateCost attaches the single cost to a todo category and bumps the
// phase's expected total atomically.
func (o *Orchestrator) CreateCost(ctx context.Context, phaseID, categoryID int, expectedCost int64, actor model.Principal) (*model.Cost, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionCreateCost); err != nil {
		return nil, transition.Forbidden("cost", "role may not create costs")
	}
	if expectedCost <= 0 {
		return nil, transition.Precondition("cost", "expected cost must be positive")
	}

	category, err := o.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category.PhaseID != phaseID {
		return nil, transition.Precondition("cost", "category does not belong to the phase")
	}
	if category.Status != model.CategoryTodo {
		return nil, transition.Precondition("cost", "category is past todo")
	}
	if existing, err := o.costs.GetByCategory(ctx, categoryID); err == nil && existing != nil {
		return nil, transition.Conflict("cost", "category already has a cost")
	} else if err != nil && transition.KindOf(err) != transition.KindNotFound {
		return nil, err
	}

	cost := &model.Cost{
		CategoryID:   categoryID,
		ExpectedCost: expectedCost,
		Status:       model.CostNotTransferred,
	}
	if err := o.costs.CreateWithPhaseTotal(ctx, cost, phaseID); err != nil {
		return nil, err
	}

	o.pushCategories(ctx, phaseID)
	return cost, nil
}

// UpdateActualCost records the settled amount once the category is done.
func (o *Orchestrator) UpdateActualCost(ctx context.Context, costID int, actual int64, actor model.Principal) (*model.Cost, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionUpdateCost); err != nil {
		return nil, transition.Forbidden("cost", "role may not update costs")
	}
	if actual < 0 {
		return nil, transition.Precondition("cost", "actual cost must not be negative")
	}

	cost, err := o.costs.GetByID(ctx, costID)
	if err != nil {
		return nil, err
	}
	category, err := o.categories.GetByID(ctx, cost.CategoryID)
	if err != nil {
		return nil, err
	}
	if category.Status != model.CategoryDone {
		return nil, transition.Precondition("cost", "category is not done")
	}
	phase, err := o.phases.GetByID(ctx, category.PhaseID)
	if err != nil {
		return nil, err
	}

	if err := o.costs.SetActualCost(ctx, costID, phase.ID, actual); err != nil {
		return nil, err
	}

	o.pushCategories(ctx, phase.ID)
	return o.costs.GetByID(ctx, costID)
}

// ChangePhaseStatus runs the phase state machine. Finishing a phase
// additionally resets its cost state, stamps the end date, provisions
// temporary accounts for every authorized project user and pushes the
// project's phase list.
func (o *Orchestrator) ChangePhaseStatus(ctx context.Context, phaseID int, target model.PhaseStatus, actor model.Principal) (*model.Phase, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionChangePhase); err != nil {
		return nil, transition.Forbidden("phase", "role may not change phase status")
	}

	phase, err := o.phases.GetByID(ctx, phaseID)
	if err != nil {
		return nil, err
	}

	facts := transition.PhaseFacts{PreviousPhaseDone: true}
	if phase.PhaseNumber > 1 {
		prev, err := o.phases.GetByNumber(ctx, phase.ProjectID, phase.PhaseNumber-1)
		if err != nil {
			return nil, err
		}
		facts.PreviousPhaseDone = prev.Status == model.PhaseDone
	}

	updated, err := transition.Phase(*phase, target, facts, o.now())
	metrics.RecordTransition("phase", err == nil)
	if err != nil {
		return nil, err
	}

	if err := o.phases.UpdateState(ctx, &updated); err != nil {
		return nil, err
	}

	o.pushPhases(ctx, phase.ProjectID)

	if updated.Status == model.PhaseDone {
		o.provisionAccounts(ctx, phase.ProjectID, actor)
		o.completeProjectIfFinished(ctx, phase.ProjectID)
	}
	return &updated, nil
}

// completeProjectIfFinished closes the project once its last phase is
// done. Best-effort: the phase transition already committed.
func (o *Orchestrator) completeProjectIfFinished(ctx context.Context, projectID int) {
	project, err := o.projects.GetByID(ctx, projectID)
	if err != nil || project.Status.Terminal() {
		return
	}
	phases, err := o.phases.ListByProject(ctx, projectID)
	if err != nil {
		o.logger.Warn("Failed to list phases for project completion",
			zap.Int("project_id", projectID),
			zap.Error(err),
		)
		return
	}
	for _, p := range phases {
		if p.Status != model.PhaseDone {
			return
		}
	}
	if err := o.projects.UpdateStatus(ctx, projectID, model.ProjectDone); err != nil {
		o.logger.Warn("Failed to mark project done",
			zap.Int("project_id", projectID),
			zap.Error(err),
		)
		return
	}
	o.logger.Info("Project completed", zap.Int("project_id", projectID))
}

// ChangeCostStatus advances the money machine on a single cost and, when
// receipt is confirmed, mirrors the state onto the owning phase.
func (o *Orchestrator) ChangeCostStatus(ctx context.Context, costID int, target model.CostState, actor model.Principal) (*model.Cost, error) {
	switch target {
	case model.CostTransferred:
		if err := rbac.CheckPermission(actor.Role, rbac.PermissionTransferCost); err != nil {
			return nil, transition.Forbidden("cost", "role may not transfer funds")
		}
	case model.CostReceived:
		if err := rbac.CheckPermission(actor.Role, rbac.PermissionReceiveCost); err != nil {
			return nil, transition.Forbidden("cost", "role may not confirm receipt")
		}
	}

	cost, err := o.costs.GetByID(ctx, costID)
	if err != nil {
		return nil, err
	}
	category, err := o.categories.GetByID(ctx, cost.CategoryID)
	if err != nil {
		return nil, err
	}
	phase, err := o.phases.GetByID(ctx, category.PhaseID)
	if err != nil {
		return nil, err
	}

	facts, err := o.costFacts(ctx, phase.ProjectID, actor)
	if err != nil {
		return nil, err
	}

	next, err := transition.CostState(cost.Status, target, facts)
	metrics.RecordTransition("cost", err == nil)
	if err != nil {
		return nil, err
	}

	if err := o.costs.UpdateStatus(ctx, costID, next); err != nil {
		return nil, err
	}
	if next == model.CostReceived {
		if err := o.phases.UpdateCostStatus(ctx, phase.ID, model.CostReceived); err != nil {
			return nil, err
		}
	}

	o.pushCategories(ctx, phase.ID)
	cost.Status = next
	return cost, nil
}

// CreateEvidence attaches proof of spend to a received cost.
func (o *Orchestrator) CreateEvidence(ctx context.Context, costID int, description, imageURL string, actor model.Principal) (*model.Evidence, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionCreateEvidence); err != nil {
		return nil, transition.Forbidden("evidence", "role may not create evidence")
	}

	cost, err := o.costs.GetByID(ctx, costID)
	if err != nil {
		return nil, err
	}
	if cost.Status != model.CostReceived {
		return nil, transition.Precondition("evidence", "cost has not been received")
	}

	evidence := &model.Evidence{
		CostID:      costID,
		Description: description,
		ImageURL:    imageURL,
	}
	if err := o.costs.CreateEvidence(ctx, evidence); err != nil {
		return nil, err
	}

	category, err := o.categories.GetByID(ctx, cost.CategoryID)
	if err == nil {
		o.pushCategories(ctx, category.PhaseID)
	}
	return evidence, nil
}

// ListEvidence returns the spend proof attached to a cost. Read-only,
// so every authenticated role may call it.
func (o *Orchestrator) ListEvidence(ctx context.Context, costID int) ([]model.Evidence, error) {
	if _, err := o.costs.GetByID(ctx, costID); err != nil {
		return nil, err
	}
	return o.costs.ListEvidence(ctx, costID)
}

// DeletePhase removes a pending phase and everything under it in one
// transaction.
func (o *Orchestrator) DeletePhase(ctx context.Context, phaseID int, actor model.Principal) error {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionDeletePhase); err != nil {
		return transition.Forbidden("phase", "role may not delete phases")
	}

	phase, err := o.phases.GetByID(ctx, phaseID)
	if err != nil {
		return err
	}
	if err := o.requireLeaderOfSelectedGroup(ctx, phase.ProjectID, actor); err != nil {
		return err
	}
	if phase.Status != model.PhasePending {
		return transition.Precondition("phase", "only pending phases may be deleted")
	}

	if err := o.phases.DeleteCascade(ctx, phaseID); err != nil {
		return err
	}

	o.pushPhases(ctx, phase.ProjectID)
	return nil
}

// RegisterPitching files a group's bid while the project is public.
func (o *Orchestrator) RegisterPitching(ctx context.Context, projectID int, actor model.Principal) (*model.RegisterPitching, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionRegisterPitch); err != nil {
		return nil, transition.Forbidden("pitching", "role may not register pitchings")
	}
	leader, err := o.users.IsGroupLeader(ctx, actor.UserID, actor.GroupID)
	if err != nil {
		return nil, err
	}
	if !leader {
		return nil, transition.Forbidden("pitching", "only the group leader may register")
	}

	project, err := o.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != model.ProjectPublic {
		return nil, transition.Precondition("pitching", "project is not open for pitching")
	}

	pitching := &model.RegisterPitching{
		ProjectID: projectID,
		GroupID:   actor.GroupID,
		Status:    model.PitchingPending,
	}
	if err := o.pitchings.Create(ctx, pitching); err != nil {
		return nil, err
	}

	o.pushPitchings(ctx, projectID)
	return pitching, nil
}

// SelectPitching lets the business pick the winning group: the chosen
// pitching becomes selected, every sibling is rejected and the project
// moves to processing, atomically. The winning leader is notified.
func (o *Orchestrator) SelectPitching(ctx context.Context, projectID, pitchingID int, actor model.Principal) error {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionSelectPitch); err != nil {
		return transition.Forbidden("pitching", "role may not select pitchings")
	}

	project, err := o.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if actor.Role == rbac.RoleBusiness && project.BusinessID != actor.UserID {
		return transition.Forbidden("pitching", "project belongs to another business")
	}
	if project.Status != model.ProjectPublic {
		return transition.Precondition("pitching", "project is not open for pitching")
	}

	pitching, err := o.pitchings.GetByID(ctx, pitchingID)
	if err != nil {
		return err
	}
	if pitching.ProjectID != projectID {
		return transition.Precondition("pitching", "pitching does not belong to the project")
	}

	if err := o.pitchings.Select(ctx, projectID, pitchingID); err != nil {
		return err
	}

	if leader, err := o.users.GroupLeader(ctx, pitching.GroupID); err == nil {
		if err := o.notifier.Notify(ctx, actor.UserID, *leader,
			model.NotificationPitchingSelected,
			fmt.Sprintf("Your group was selected for project %q", project.Title),
		); err != nil {
			o.logger.Warn("Failed to create selection notification", zap.Error(err))
		}
	} else {
		o.logger.Warn("Failed to resolve group leader", zap.Error(err))
	}

	o.pushPitchings(ctx, projectID)
	o.pushPhases(ctx, projectID)
	return nil
}

// SetCategoryActualResult records the one-time post-done result text.
func (o *Orchestrator) SetCategoryActualResult(ctx context.Context, categoryID int, result string, actor model.Principal) error {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionChangeCategory); err != nil {
		return transition.Forbidden("category", "role may not edit categories")
	}
	category, err := o.categories.GetByID(ctx, categoryID)
	if err != nil {
		return err
	}
	if category.Status != model.CategoryDone {
		return transition.Precondition("category", "category is not done")
	}
	if err := o.categories.SetActualResult(ctx, categoryID, result); err != nil {
		return err
	}
	o.pushCategories(ctx, category.PhaseID)
	return nil
}

// costFacts gathers the data-dependent authorization facts for the money
// machine.
func (o *Orchestrator) costFacts(ctx context.Context, projectID int, actor model.Principal) (transition.CostFacts, error) {
	facts := transition.CostFacts{Actor: actor}

	owner, err := o.users.IsProjectOwner(ctx, actor.UserID, projectID)
	if err != nil {
		return facts, err
	}
	facts.ActorOwnsProject = owner || actor.Role == rbac.RoleAdmin

	if selected, err := o.pitchings.GetSelected(ctx, projectID); err == nil {
		isLeader, err := o.users.IsGroupLeader(ctx, actor.UserID, selected.GroupID)
		if err != nil {
			return facts, err
		}
		facts.ActorIsLeader = isLeader
	} else if transition.KindOf(err) != transition.KindNotFound {
		return facts, err
	}
	return facts, nil
}

// requireLeaderOfSelectedGroup admits admins and the leader of the
// group selected for the project.
func (o *Orchestrator) requireLeaderOfSelectedGroup(ctx context.Context, projectID int, actor model.Principal) error {
	if actor.Role == rbac.RoleAdmin {
		return nil
	}
	selected, err := o.pitchings.GetSelected(ctx, projectID)
	if err != nil {
		if transition.KindOf(err) == transition.KindNotFound {
			return transition.Precondition("project", "project has no selected group")
		}
		return err
	}
	isLeader, err := o.users.IsGroupLeader(ctx, actor.UserID, selected.GroupID)
	if err != nil {
		return err
	}
	if !isLeader {
		return transition.Forbidden("project", "actor is not the selected group's leader")
	}
	return nil
}

// provisionAccounts hands every authorized project user a temporary
// account. Fully best-effort: failures are logged, never surfaced.
func (o *Orchestrator) provisionAccounts(ctx context.Context, projectID int, actor model.Principal) {
	users, err := o.users.ProjectUsers(ctx, projectID)
	if err != nil {
		o.logger.Warn("Failed to list project users for provisioning",
			zap.Int("project_id", projectID),
			zap.Error(err),
		)
		return
	}

	for _, u := range users {
		password, err := GenerateTemporaryPassword()
		if err != nil {
			o.logger.Warn("Failed to generate temporary password", zap.Error(err))
			continue
		}
		hash, err := o.hashPassword(password)
		if err != nil {
			o.logger.Warn("Failed to hash temporary password", zap.Error(err))
			continue
		}
		if err := o.users.SetTemporaryPassword(ctx, u.ID, hash); err != nil {
			o.logger.Warn("Failed to store temporary password",
				zap.Int("user_id", u.ID),
				zap.Error(err),
			)
			continue
		}
		if err := o.mailer.SendAccountProvisioned(u.Email, u.FullName, password); err != nil {
			o.logger.Warn("Failed to send provisioning email",
				zap.String("email", u.Email),
				zap.Error(err),
			)
		}
		if err := o.notifier.Notify(ctx, actor.UserID, u,
			model.NotificationPhaseDone, "A phase finished; a temporary account was provisioned for you",
		); err != nil {
			o.logger.Warn("Failed to create provisioning notification", zap.Error(err))
		}
	}
}

// pushPhases recomputes and pushes the project's phase list. Best-effort.
func (o *Orchestrator) pushPhases(ctx context.Context, projectID int) {
	phases, err := o.phases.ListByProject(ctx, projectID)
	if err != nil {
		o.logger.Warn("Failed to recompute phase snapshot",
			zap.Int("project_id", projectID),
			zap.Error(err),
		)
		return
	}
	topic := fanout.PhasesTopic(projectID)
	if err := o.bus.Publish(topic, phases); err != nil {
		o.logger.Warn("Dropped phase snapshot push",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}

// pushCategories recomputes and pushes the phase's category list.
func (o *Orchestrator) pushCategories(ctx context.Context, phaseID int) {
	categories, err := o.categories.ListByPhase(ctx, phaseID)
	if err != nil {
		o.logger.Warn("Failed to recompute category snapshot",
			zap.Int("phase_id", phaseID),
			zap.Error(err),
		)
		return
	}
	topic := fanout.CategoriesTopic(phaseID)
	if err := o.bus.Publish(topic, categories); err != nil {
		o.logger.Warn("Dropped category snapshot push",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}

// pushPitchings recomputes and pushes the project's pitching list.
func (o *Orchestrator) pushPitchings(ctx context.Context, projectID int) {
	pitchings, err := o.pitchings.ListByProject(ctx, projectID)
	if err != nil {
		o.logger.Warn("Failed to recompute pitching snapshot",
			zap.Int("project_id", projectID),
			zap.Error(err),
		)
		return
	}
	topic := fanout.PitchingsTopic(projectID)
	if err := o.bus.Publish(topic, pitchings); err != nil {
		o.logger.Warn("Dropped pitching snapshot push",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}
