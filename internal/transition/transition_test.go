package transition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabhub/internal/model"
	"collabhub/pkg/rbac"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestCategory(t *testing.T) {
	tests := []struct {
		name     string
		status   model.CategoryStatus
		target   model.CategoryStatus
		facts    CategoryFacts
		wantKind Kind
	}{
		{
			name:   "todo to doing under processing phase",
			status: model.CategoryTodo,
			target: model.CategoryDoing,
			facts:  CategoryFacts{PhaseStatus: model.PhaseProcessing},
		},
		{
			name:   "todo to doing under warning phase",
			status: model.CategoryTodo,
			target: model.CategoryDoing,
			facts:  CategoryFacts{PhaseStatus: model.PhaseWarning},
		},
		{
			name:     "todo to doing under pending phase",
			status:   model.CategoryTodo,
			target:   model.CategoryDoing,
			facts:    CategoryFacts{PhaseStatus: model.PhasePending},
			wantKind: KindPreconditionFailed,
		},
		{
			name:     "todo to doing under done phase",
			status:   model.CategoryTodo,
			target:   model.CategoryDoing,
			facts:    CategoryFacts{PhaseStatus: model.PhaseDone},
			wantKind: KindPreconditionFailed,
		},
		{
			name:     "todo skipping to done",
			status:   model.CategoryTodo,
			target:   model.CategoryDone,
			facts:    CategoryFacts{PhaseStatus: model.PhaseProcessing},
			wantKind: KindInvalidTransition,
		},
		{
			name:   "doing to done",
			status: model.CategoryDoing,
			target: model.CategoryDone,
		},
		{
			name:     "doing back to todo",
			status:   model.CategoryDoing,
			target:   model.CategoryTodo,
			wantKind: KindInvalidTransition,
		},
		{
			name:     "done back to doing",
			status:   model.CategoryDone,
			target:   model.CategoryDoing,
			wantKind: KindInvalidTransition,
		},
		{
			name:     "done back to todo",
			status:   model.CategoryDone,
			target:   model.CategoryTodo,
			wantKind: KindInvalidTransition,
		},
		{
			name:     "no-op doing to doing",
			status:   model.CategoryDoing,
			target:   model.CategoryDoing,
			wantKind: KindInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := model.Category{ID: 7, Status: tt.status}
			out, err := Category(in, tt.target, tt.facts, testNow)

			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				assert.Equal(t, tt.status, out.Status, "refused transition must not mutate")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.target, out.Status)
		})
	}
}

func TestCategoryDoneStampsActualEndDate(t *testing.T) {
	out, err := Category(model.Category{Status: model.CategoryDoing}, model.CategoryDone, CategoryFacts{}, testNow)
	require.NoError(t, err)
	require.NotNil(t, out.ActualEndDate)
	assert.Equal(t, testNow, *out.ActualEndDate)
}

func TestPhase(t *testing.T) {
	tests := []struct {
		name     string
		status   model.PhaseStatus
		target   model.PhaseStatus
		facts    PhaseFacts
		wantKind Kind
	}{
		{
			name:   "pending to processing when previous phase is done",
			status: model.PhasePending,
			target: model.PhaseProcessing,
			facts:  PhaseFacts{PreviousPhaseDone: true},
		},
		{
			name:     "pending to processing blocked by previous phase",
			status:   model.PhasePending,
			target:   model.PhaseProcessing,
			facts:    PhaseFacts{PreviousPhaseDone: false},
			wantKind: KindPreconditionFailed,
		},
		{
			name:     "pending to done",
			status:   model.PhasePending,
			target:   model.PhaseDone,
			wantKind: KindInvalidTransition,
		},
		{
			name:   "processing to done",
			status: model.PhaseProcessing,
			target: model.PhaseDone,
		},
		{
			name:   "processing to warning via sweep",
			status: model.PhaseProcessing,
			target: model.PhaseWarning,
			facts:  PhaseFacts{ViaSweep: true},
		},
		{
			name:     "processing to warning from a caller",
			status:   model.PhaseProcessing,
			target:   model.PhaseWarning,
			facts:    PhaseFacts{ViaSweep: false},
			wantKind: KindForbidden,
		},
		{
			name:   "warning to done",
			status: model.PhaseWarning,
			target: model.PhaseDone,
		},
		{
			name:     "warning back to processing",
			status:   model.PhaseWarning,
			target:   model.PhaseProcessing,
			wantKind: KindInvalidTransition,
		},
		{
			name:     "pending is never a target",
			status:   model.PhaseProcessing,
			target:   model.PhasePending,
			wantKind: KindInvalidTransition,
		},
		{
			name:     "done is terminal",
			status:   model.PhaseDone,
			target:   model.PhaseProcessing,
			wantKind: KindInvalidTransition,
		},
		{
			name:     "no-op processing to processing",
			status:   model.PhaseProcessing,
			target:   model.PhaseProcessing,
			wantKind: KindInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := model.Phase{ID: 3, Status: tt.status, CostStatus: model.CostTransferred}
			out, err := Phase(in, tt.target, tt.facts, testNow)

			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				assert.Equal(t, tt.status, out.Status, "refused transition must not mutate")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.target, out.Status)
		})
	}
}

func TestPhaseDoneResetsCostStatus(t *testing.T) {
	in := model.Phase{Status: model.PhaseProcessing, CostStatus: model.CostReceived}
	out, err := Phase(in, model.PhaseDone, PhaseFacts{}, testNow)
	require.NoError(t, err)

	assert.Equal(t, model.CostNotTransferred, out.CostStatus)
	require.NotNil(t, out.ActualEndDate)
	assert.Equal(t, testNow, *out.ActualEndDate)
}

func TestCostState(t *testing.T) {
	owner := CostFacts{ActorOwnsProject: true}
	leader := CostFacts{
		Actor:         model.Principal{Role: rbac.RoleStudent},
		ActorIsLeader: true,
	}

	tests := []struct {
		name     string
		current  model.CostState
		target   model.CostState
		facts    CostFacts
		wantKind Kind
	}{
		{
			name:    "owner transfers",
			current: model.CostNotTransferred,
			target:  model.CostTransferred,
			facts:   owner,
		},
		{
			name:     "non-owner transfer refused",
			current:  model.CostNotTransferred,
			target:   model.CostTransferred,
			facts:    CostFacts{},
			wantKind: KindForbidden,
		},
		{
			name:     "double transfer refused",
			current:  model.CostTransferred,
			target:   model.CostTransferred,
			facts:    owner,
			wantKind: KindInvalidTransition,
		},
		{
			name:    "leader confirms receipt",
			current: model.CostTransferred,
			target:  model.CostReceived,
			facts:   leader,
		},
		{
			name:    "non-leader student cannot confirm receipt",
			current: model.CostTransferred,
			target:  model.CostReceived,
			facts: CostFacts{
				Actor: model.Principal{Role: rbac.RoleStudent},
			},
			wantKind: KindForbidden,
		},
		{
			name:    "leader of another role cannot confirm receipt",
			current: model.CostTransferred,
			target:  model.CostReceived,
			facts: CostFacts{
				Actor:         model.Principal{Role: rbac.RoleLecturer},
				ActorIsLeader: true,
			},
			wantKind: KindForbidden,
		},
		{
			name:     "receipt before transfer refused",
			current:  model.CostNotTransferred,
			target:   model.CostReceived,
			facts:    leader,
			wantKind: KindInvalidTransition,
		},
		{
			name:     "received is terminal",
			current:  model.CostReceived,
			target:   model.CostTransferred,
			facts:    owner,
			wantKind: KindInvalidTransition,
		},
		{
			name:     "not_transferred is never a target",
			current:  model.CostTransferred,
			target:   model.CostNotTransferred,
			facts:    owner,
			wantKind: KindInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CostState(tt.current, tt.target, tt.facts)

			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				assert.Equal(t, tt.current, got, "refused transition must not mutate")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.target, got)
		})
	}
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(assert.AnError))
}
