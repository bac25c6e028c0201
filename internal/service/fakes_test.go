package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"collabhub/internal/model"
	"collabhub/internal/transition"
)

var errPushFailed = errors.New("push failed")

// In-memory stores backing the service tests. They mirror the semantics
// of the pgx repositories closely enough for the orchestrator, the sweep
// and the payment adapter to run against them unchanged.

type fakeProjects struct {
	m map[int]*model.Project
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{m: make(map[int]*model.Project)}
}

func (f *fakeProjects) GetByID(_ context.Context, id int) (*model.Project, error) {
	p, ok := f.m[id]
	if !ok {
		return nil, transition.NotFound("project", "project not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) UpdateStatus(_ context.Context, id int, status model.ProjectStatus) error {
	p, ok := f.m[id]
	if !ok {
		return transition.NotFound("project", "project not found")
	}
	p.Status = status
	return nil
}

type fakePhases struct {
	m           map[int]*model.Phase
	updateErr   map[int]error
	nextID      int
	categories  *fakeCategories
	transferErr error
}

func newFakePhases() *fakePhases {
	return &fakePhases{m: make(map[int]*model.Phase), nextID: 1}
}

func (f *fakePhases) GetByID(_ context.Context, id int) (*model.Phase, error) {
	p, ok := f.m[id]
	if !ok {
		return nil, transition.NotFound("phase", "phase not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePhases) GetByNumber(_ context.Context, projectID, phaseNumber int) (*model.Phase, error) {
	for _, p := range f.m {
		if p.ProjectID == projectID && p.PhaseNumber == phaseNumber {
			cp := *p
			return &cp, nil
		}
	}
	return nil, transition.NotFound("phase", "phase not found")
}

func (f *fakePhases) ListByProject(_ context.Context, projectID int) ([]model.Phase, error) {
	var out []model.Phase
	for _, p := range f.m {
		if p.ProjectID == projectID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhaseNumber < out[j].PhaseNumber })
	return out, nil
}

func (f *fakePhases) CountByProject(ctx context.Context, projectID int) (int, error) {
	list, _ := f.ListByProject(ctx, projectID)
	return len(list), nil
}

func (f *fakePhases) Create(_ context.Context, p *model.Phase) error {
	p.ID = f.nextID
	f.nextID++
	cp := *p
	f.m[p.ID] = &cp
	return nil
}

func (f *fakePhases) UpdateState(_ context.Context, p *model.Phase) error {
	if err := f.updateErr[p.ID]; err != nil {
		return err
	}
	if _, ok := f.m[p.ID]; !ok {
		return transition.NotFound("phase", "phase not found")
	}
	cp := *p
	f.m[p.ID] = &cp
	return nil
}

func (f *fakePhases) UpdateCostStatus(_ context.Context, id int, status model.CostState) error {
	p, ok := f.m[id]
	if !ok {
		return transition.NotFound("phase", "phase not found")
	}
	p.CostStatus = status
	return nil
}

func (f *fakePhases) TransferWithCategoryCascade(ctx context.Context, phaseID int) error {
	if f.transferErr != nil {
		return f.transferErr
	}
	p, ok := f.m[phaseID]
	if !ok {
		return transition.NotFound("phase", "phase not found")
	}
	if p.CostStatus != model.CostNotTransferred {
		return transition.Invalid("payment", "phase funds already moved")
	}
	p.CostStatus = model.CostTransferred
	if f.categories != nil {
		return f.categories.MarkAllDone(ctx, phaseID)
	}
	return nil
}

func (f *fakePhases) ListOverdue(_ context.Context, cutoff time.Time) ([]model.Phase, error) {
	var out []model.Phase
	for _, p := range f.m {
		if p.Status == model.PhaseWarning || p.Status == model.PhaseDone {
			continue
		}
		if !p.ExpectedEndDate.After(cutoff) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePhases) DeleteCascade(_ context.Context, phaseID int) error {
	if _, ok := f.m[phaseID]; !ok {
		return transition.NotFound("phase", "phase not found")
	}
	delete(f.m, phaseID)
	return nil
}

type fakeCategories struct {
	m      map[int]*model.Category
	nextID int
}

func newFakeCategories() *fakeCategories {
	return &fakeCategories{m: make(map[int]*model.Category), nextID: 1}
}

func (f *fakeCategories) GetByID(_ context.Context, id int) (*model.Category, error) {
	c, ok := f.m[id]
	if !ok {
		return nil, transition.NotFound("category", "category not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCategories) ListByPhase(_ context.Context, phaseID int) ([]model.Category, error) {
	var out []model.Category
	for _, c := range f.m {
		if c.PhaseID == phaseID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCategories) Create(_ context.Context, c *model.Category) error {
	c.ID = f.nextID
	f.nextID++
	cp := *c
	f.m[c.ID] = &cp
	return nil
}

func (f *fakeCategories) UpdateState(_ context.Context, c *model.Category) error {
	if _, ok := f.m[c.ID]; !ok {
		return transition.NotFound("category", "category not found")
	}
	cp := *c
	f.m[c.ID] = &cp
	return nil
}

func (f *fakeCategories) SetActualResult(_ context.Context, id int, result string) error {
	c, ok := f.m[id]
	if !ok {
		return transition.NotFound("category", "category not found")
	}
	if c.ActualResult != "" {
		return transition.Conflict("category", "actual result already set")
	}
	c.ActualResult = result
	return nil
}

func (f *fakeCategories) CountNotDone(_ context.Context, phaseID int) (int, error) {
	n := 0
	for _, c := range f.m {
		if c.PhaseID == phaseID && c.Status != model.CategoryDone {
			n++
		}
	}
	return n, nil
}

func (f *fakeCategories) MarkAllDone(_ context.Context, phaseID int) error {
	now := time.Now()
	for _, c := range f.m {
		if c.PhaseID == phaseID && c.Status != model.CategoryDone {
			c.Status = model.CategoryDone
			if c.ActualEndDate == nil {
				end := now
				c.ActualEndDate = &end
			}
		}
	}
	return nil
}

type fakeCosts struct {
	m        map[int]*model.Cost
	phases   *fakePhases
	evidence []model.Evidence
	nextID   int
}

func newFakeCosts(phases *fakePhases) *fakeCosts {
	return &fakeCosts{m: make(map[int]*model.Cost), phases: phases, nextID: 1}
}

func (f *fakeCosts) GetByID(_ context.Context, id int) (*model.Cost, error) {
	c, ok := f.m[id]
	if !ok {
		return nil, transition.NotFound("cost", "cost not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCosts) GetByCategory(_ context.Context, categoryID int) (*model.Cost, error) {
	for _, c := range f.m {
		if c.CategoryID == categoryID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, transition.NotFound("cost", "cost not found")
}

func (f *fakeCosts) CreateWithPhaseTotal(ctx context.Context, c *model.Cost, phaseID int) error {
	if existing, err := f.GetByCategory(ctx, c.CategoryID); err == nil && existing != nil {
		return transition.Conflict("cost", "category already has a cost")
	}
	c.ID = f.nextID
	f.nextID++
	cp := *c
	f.m[c.ID] = &cp
	if p, ok := f.phases.m[phaseID]; ok {
		p.ExpectedCostTotal += c.ExpectedCost
	}
	return nil
}

func (f *fakeCosts) SetActualCost(_ context.Context, costID, phaseID int, actual int64) error {
	c, ok := f.m[costID]
	if !ok {
		return transition.NotFound("cost", "cost not found")
	}
	var previous int64
	if c.ActualCost != nil {
		previous = *c.ActualCost
	}
	c.ActualCost = &actual
	if p, ok := f.phases.m[phaseID]; ok {
		p.ActualCostTotal += actual - previous
	}
	return nil
}

func (f *fakeCosts) UpdateStatus(_ context.Context, id int, status model.CostState) error {
	c, ok := f.m[id]
	if !ok {
		return transition.NotFound("cost", "cost not found")
	}
	c.Status = status
	return nil
}

func (f *fakeCosts) CreateEvidence(_ context.Context, e *model.Evidence) error {
	e.ID = len(f.evidence) + 1
	f.evidence = append(f.evidence, *e)
	return nil
}

func (f *fakeCosts) ListEvidence(_ context.Context, costID int) ([]model.Evidence, error) {
	var out []model.Evidence
	for _, e := range f.evidence {
		if e.CostID == costID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePitchings struct {
	m        map[int]*model.RegisterPitching
	projects *fakeProjects
	nextID   int
}

func newFakePitchings(projects *fakeProjects) *fakePitchings {
	return &fakePitchings{m: make(map[int]*model.RegisterPitching), projects: projects, nextID: 1}
}

func (f *fakePitchings) GetByID(_ context.Context, id int) (*model.RegisterPitching, error) {
	p, ok := f.m[id]
	if !ok {
		return nil, transition.NotFound("pitching", "pitching not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePitchings) GetSelected(_ context.Context, projectID int) (*model.RegisterPitching, error) {
	for _, p := range f.m {
		if p.ProjectID == projectID && p.Status == model.PitchingSelected {
			cp := *p
			return &cp, nil
		}
	}
	return nil, transition.NotFound("pitching", "no selected pitching")
}

func (f *fakePitchings) ListByProject(_ context.Context, projectID int) ([]model.RegisterPitching, error) {
	var out []model.RegisterPitching
	for _, p := range f.m {
		if p.ProjectID == projectID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePitchings) Create(_ context.Context, p *model.RegisterPitching) error {
	for _, existing := range f.m {
		if existing.ProjectID == p.ProjectID && existing.GroupID == p.GroupID {
			return transition.Conflict("pitching", "group already pitched this project")
		}
	}
	p.ID = f.nextID
	f.nextID++
	cp := *p
	f.m[p.ID] = &cp
	return nil
}

func (f *fakePitchings) Select(_ context.Context, projectID, pitchingID int) error {
	chosen, ok := f.m[pitchingID]
	if !ok {
		return transition.NotFound("pitching", "pitching not found")
	}
	if chosen.Status != model.PitchingPending {
		return transition.Precondition("pitching", "pitching is not pending")
	}
	chosen.Status = model.PitchingSelected
	for _, p := range f.m {
		if p.ProjectID == projectID && p.ID != pitchingID && p.Status == model.PitchingPending {
			p.Status = model.PitchingRejected
		}
	}
	if project, ok := f.projects.m[projectID]; ok {
		project.Status = model.ProjectProcessing
	}
	return nil
}

type fakeNotifications struct {
	rows []*model.Notification
}

func (f *fakeNotifications) Insert(_ context.Context, n *model.Notification) error {
	n.ID = len(f.rows) + 1
	n.IsNew = true
	cp := *n
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeNotifications) GetByID(_ context.Context, id int) (*model.Notification, error) {
	for _, n := range f.rows {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, transition.NotFound("notification", "notification not found")
}

func (f *fakeNotifications) MarkRead(_ context.Context, id int) error {
	for _, n := range f.rows {
		if n.ID == id {
			n.IsNew = false
			return nil
		}
	}
	return transition.NotFound("notification", "notification not found")
}

func (f *fakeNotifications) CountUnread(_ context.Context, receiverEmail string) (int, error) {
	count := 0
	for _, n := range f.rows {
		if n.ReceiverEmail == receiverEmail && n.IsNew {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifications) ClaimPending(_ context.Context, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.rows {
		if !n.Dispatched && n.RetryCount < 5 {
			n.Dispatched = true
			out = append(out, *n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotifications) MarkDispatchFailed(_ context.Context, id int) (bool, error) {
	for _, n := range f.rows {
		if n.ID == id {
			n.Dispatched = false
			n.RetryCount++
			return n.RetryCount >= 5, nil
		}
	}
	return false, transition.NotFound("notification", "notification not found")
}

func (f *fakeNotifications) byType(typ string) []*model.Notification {
	var out []*model.Notification
	for _, n := range f.rows {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

type fakeUsers struct {
	users        map[int]*model.User
	leaders      map[int]int // groupID -> leader userID
	lecturers    map[int][]model.User
	projectUsers map[int][]model.User
	owners       map[[2]int]bool // {userID, projectID}
	tempHashes   map[int]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:        make(map[int]*model.User),
		leaders:      make(map[int]int),
		lecturers:    make(map[int][]model.User),
		projectUsers: make(map[int][]model.User),
		owners:       make(map[[2]int]bool),
		tempHashes:   make(map[int]string),
	}
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, transition.NotFound("user", "user not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GroupLeader(_ context.Context, groupID int) (*model.User, error) {
	id, ok := f.leaders[groupID]
	if !ok {
		return nil, transition.NotFound("user", "group has no leader")
	}
	u, ok := f.users[id]
	if !ok {
		return nil, transition.NotFound("user", "leader not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) IsGroupLeader(_ context.Context, userID, groupID int) (bool, error) {
	return f.leaders[groupID] == userID, nil
}

func (f *fakeUsers) GroupLecturers(_ context.Context, groupID int) ([]model.User, error) {
	return f.lecturers[groupID], nil
}

func (f *fakeUsers) ProjectUsers(_ context.Context, projectID int) ([]model.User, error) {
	return f.projectUsers[projectID], nil
}

func (f *fakeUsers) IsProjectOwner(_ context.Context, userID, projectID int) (bool, error) {
	return f.owners[[2]int{userID, projectID}], nil
}

func (f *fakeUsers) SetTemporaryPassword(_ context.Context, userID int, hash string) error {
	if _, ok := f.users[userID]; !ok {
		return transition.NotFound("user", "user not found")
	}
	f.tempHashes[userID] = hash
	return nil
}

type push struct {
	topic   string
	payload any
}

type memBus struct {
	pushes     []push
	failTopics map[string]bool
}

func (b *memBus) Publish(topic string, payload any) error {
	if b.failTopics[topic] {
		return errPushFailed
	}
	b.pushes = append(b.pushes, push{topic: topic, payload: payload})
	return nil
}

func (b *memBus) topics() []string {
	out := make([]string, 0, len(b.pushes))
	for _, p := range b.pushes {
		out = append(out, p.topic)
	}
	return out
}

type fakeMailer struct {
	provisioned []string // emails
	support     []string // emails
	supportErr  error
}

func (m *fakeMailer) SendAccountProvisioned(email, _, _ string) error {
	m.provisioned = append(m.provisioned, email)
	return nil
}

func (m *fakeMailer) SendSupport(email, _, _ string) error {
	if m.supportErr != nil {
		return m.supportErr
	}
	m.support = append(m.support, email)
	return nil
}

type fakeGuard struct {
	seen map[string]bool
}

func (g *fakeGuard) Acquire(_ context.Context, key string) (bool, error) {
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func (g *fakeGuard) Release(_ context.Context, key string) error {
	delete(g.seen, key)
	return nil
}

type fakeDeadLetter struct {
	parked []string // routing keys
}

func (d *fakeDeadLetter) PublishToDeadLetter(routingKey string, _ any, _ string) error {
	d.parked = append(d.parked, routingKey)
	return nil
}
