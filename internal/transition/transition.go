// Package transition holds the per-entity state machines. Every function
// here is pure: it looks at the current entity, the requested target and
// the facts the caller gathered, and either returns the mutated copy or a
// typed refusal. All I/O stays in the service layer.
package transition

import (
	"time"

	"collabhub/internal/model"
	"collabhub/pkg/rbac"
)

// CategoryFacts are the contextual inputs for a category transition.
type CategoryFacts struct {
	PhaseStatus model.PhaseStatus
}

// Category validates current -> target and returns the updated category.
// Status never regresses; done is terminal; doing requires the parent
// phase to be underway.
func Category(c model.Category, target model.CategoryStatus, facts CategoryFacts, now time.Time) (model.Category, error) {
	if c.Status == target {
		return c, Invalid("category", "status is already "+string(target))
	}
	switch c.Status {
	case model.CategoryTodo:
		if target != model.CategoryDoing {
			return c, Invalid("category", "todo may only move to doing")
		}
		if facts.PhaseStatus != model.PhaseProcessing && facts.PhaseStatus != model.PhaseWarning {
			return c, Precondition("category", "phase is not underway")
		}
	case model.CategoryDoing:
		if target != model.CategoryDone {
			return c, Invalid("category", "doing may only move to done")
		}
	case model.CategoryDone:
		return c, Invalid("category", "done is terminal")
	default:
		return c, Invalid("category", "unknown status "+string(c.Status))
	}

	c.Status = target
	if target == model.CategoryDone {
		end := now
		c.ActualEndDate = &end
	}
	return c, nil
}

// PhaseFacts are the contextual inputs for a phase status transition.
type PhaseFacts struct {
	PreviousPhaseDone bool // true when phase_number == 1 or phase N-1 is done
	ViaSweep          bool // warning is reachable only through the sweep
}

// Phase validates current -> target for a phase. Pending is never a valid
// target, warning only arrives via the escalation sweep, and once warning
// the only way forward is done.
func Phase(p model.Phase, target model.PhaseStatus, facts PhaseFacts, now time.Time) (model.Phase, error) {
	if target == model.PhasePending {
		return p, Invalid("phase", "pending is not a reachable target")
	}
	if p.Status == target {
		return p, Invalid("phase", "status is already "+string(target))
	}
	if p.Status == model.PhaseDone {
		return p, Invalid("phase", "done is terminal")
	}

	switch target {
	case model.PhaseProcessing:
		if p.Status != model.PhasePending {
			return p, Invalid("phase", string(p.Status)+" may not return to processing")
		}
		if !facts.PreviousPhaseDone {
			return p, Precondition("phase", "previous phase is not done")
		}
	case model.PhaseWarning:
		if !facts.ViaSweep {
			return p, Forbidden("phase", "warning is reachable only via the escalation sweep")
		}
	case model.PhaseDone:
		if p.Status == model.PhasePending {
			return p, Invalid("phase", "pending phase cannot finish")
		}
	default:
		return p, Invalid("phase", "unknown target "+string(target))
	}

	p.Status = target
	if target == model.PhaseDone {
		end := now
		p.ActualEndDate = &end
		p.CostStatus = model.CostNotTransferred
	}
	return p, nil
}

// CostFacts are the contextual inputs for a cost-state transition, shared
// by the phase-level and cost-level machines.
type CostFacts struct {
	Actor            model.Principal
	ActorOwnsProject bool // business owner or responsible person on the project
	ActorIsLeader    bool // leader of the selected group
}

// CostState advances not_transferred -> transferred -> received. Moving
// money out requires project ownership; confirming receipt requires the
// group leader.
func CostState(current, target model.CostState, facts CostFacts) (model.CostState, error) {
	switch target {
	case model.CostTransferred:
		if current != model.CostNotTransferred {
			return current, Invalid("cost", "only not_transferred may become transferred")
		}
		if !facts.ActorOwnsProject {
			return current, Forbidden("cost", "transfer requires project owner rights")
		}
	case model.CostReceived:
		if current != model.CostTransferred {
			return current, Invalid("cost", "only transferred may become received")
		}
		if facts.Actor.Role != rbac.RoleStudent || !facts.ActorIsLeader {
			return current, Forbidden("cost", "receipt confirmation requires the group leader")
		}
	default:
		return current, Invalid("cost", "unknown target "+string(target))
	}
	return target, nil
}
