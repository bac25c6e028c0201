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
)

// EscalationSweep promotes overdue phases to warning once a day. Each
// phase is processed independently: one bad record never blocks the rest
// of the batch, and a rerun on the same day is a no-op because warning
// phases no longer match the scan predicate.
type EscalationSweep struct {
	phases    PhaseStore
	pitchings PitchingStore
	users     UserStore
	notifier  *Notifier
	bus       fanout.Bus
	now       func() time.Time
	logger    *zap.Logger
}

func NewEscalationSweep(
	phases PhaseStore,
	pitchings PitchingStore,
	users UserStore,
	notifier *Notifier,
	bus fanout.Bus,
	now func() time.Time,
	logger *zap.Logger,
) *EscalationSweep {
	if now == nil {
		now = time.Now
	}
	return &EscalationSweep{
		phases:    phases,
		pitchings: pitchings,
		users:     users,
		notifier:  notifier,
		bus:       bus,
		now:       now,
		logger:    logger,
	}
}

// Run executes one sweep and returns the number of phases promoted.
func (s *EscalationSweep) Run(ctx context.Context) (int, error) {
	start := s.now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	s.logger.Info("Checking for overdue phases...")

	overdue, err := s.phases.ListOverdue(ctx, start)
	if err != nil {
		s.logger.Error("Failed to list overdue phases", zap.Error(err))
		return 0, err
	}
	if len(overdue) == 0 {
		s.logger.Debug("No overdue phases found")
		return 0, nil
	}

	promoted := 0
	for _, phase := range overdue {
		if err := s.escalate(ctx, phase); err != nil {
			s.logger.Error("Failed to escalate phase",
				zap.Int("phase_id", phase.ID),
				zap.Error(err),
			)
			continue
		}
		promoted++
		metrics.SweepWarningCount.Inc()
	}

	s.logger.Info("Escalation sweep completed",
		zap.Int("scanned", len(overdue)),
		zap.Int("promoted", promoted),
	)
	return promoted, nil
}

func (s *EscalationSweep) escalate(ctx context.Context, phase model.Phase) error {
	updated, err := transition.Phase(phase, model.PhaseWarning, transition.PhaseFacts{
		ViaSweep: true,
	}, s.now())
	metrics.RecordTransition("phase", err == nil)
	if err != nil {
		return err
	}

	if err := s.phases.UpdateState(ctx, &updated); err != nil {
		return err
	}

	s.logger.Info("Phase promoted to warning",
		zap.Int("phase_id", phase.ID),
		zap.Int("project_id", phase.ProjectID),
		zap.Time("expected_end_date", phase.ExpectedEndDate),
	)

	if phases, err := s.phases.ListByProject(ctx, phase.ProjectID); err == nil {
		topic := fanout.PhasesTopic(phase.ProjectID)
		if err := s.bus.Publish(topic, phases); err != nil {
			s.logger.Warn("Dropped phase snapshot push",
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
	}

	// Recipients come from the selected pitching; a project without one
	// still gets its phase escalated.
	selected, err := s.pitchings.GetSelected(ctx, phase.ProjectID)
	if err != nil {
		if transition.KindOf(err) == transition.KindNotFound {
			return nil
		}
		return err
	}

	content := fmt.Sprintf("Phase %d of project %d is overdue", phase.PhaseNumber, phase.ProjectID)

	if leader, err := s.users.GroupLeader(ctx, selected.GroupID); err == nil {
		if err := s.notifier.Notify(ctx, 0, *leader, model.NotificationPhaseWarning, content); err != nil {
			s.logger.Warn("Failed to create warning notification",
				zap.Int("receiver_id", leader.ID),
				zap.Error(err),
			)
		}
	} else {
		s.logger.Warn("Failed to resolve group leader", zap.Error(err))
	}

	lecturers, err := s.users.GroupLecturers(ctx, selected.GroupID)
	if err != nil {
		s.logger.Warn("Failed to list group lecturers", zap.Error(err))
		return nil
	}
	for _, lecturer := range lecturers {
		if err := s.notifier.Notify(ctx, 0, lecturer, model.NotificationPhaseWarning, content); err != nil {
			s.logger.Warn("Failed to create warning notification",
				zap.Int("receiver_id", lecturer.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}
