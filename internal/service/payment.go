package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"collabhub/internal/fanout"
	"collabhub/internal/model"
	"collabhub/internal/payment"
	"collabhub/internal/transition"
	"collabhub/pkg/metrics"
)

// ReplayGuard grants a one-time lease per gateway transaction reference
// so a replayed callback cannot drive the transition twice. Release
// returns the lease when the transition did not commit, keeping the
// gateway's automatic retry viable.
type ReplayGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisReplayGuard backs the lease with SETNX.
type RedisReplayGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisReplayGuard(rdb *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{rdb: rdb, ttl: 7 * 24 * time.Hour}
}

func (g *RedisReplayGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, "payment:"+key, 1, g.ttl).Result()
}

func (g *RedisReplayGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, "payment:"+key).Err()
}

// PaymentAdapter turns a verified gateway confirmation into exactly one
// phase cost transition: the phase's cost_status becomes transferred,
// every category of the phase is cascaded to done and the group leader
// is notified. A bad signature or a failure response code mutates
// nothing.
type PaymentAdapter struct {
	verifiers  map[string]*payment.Verifier
	phases     PhaseStore
	categories CategoryStore
	pitchings  PitchingStore
	users      UserStore
	notifier   *Notifier
	bus        fanout.Bus
	guard      ReplayGuard
	logger     *zap.Logger
}

func NewPaymentAdapter(
	verifiers []*payment.Verifier,
	phases PhaseStore,
	categories CategoryStore,
	pitchings PitchingStore,
	users UserStore,
	notifier *Notifier,
	bus fanout.Bus,
	guard ReplayGuard,
	logger *zap.Logger,
) *PaymentAdapter {
	byName := make(map[string]*payment.Verifier, len(verifiers))
	for _, v := range verifiers {
		byName[v.Gateway()] = v
	}
	return &PaymentAdapter{
		verifiers:  byName,
		phases:     phases,
		categories: categories,
		pitchings:  pitchings,
		users:      users,
		notifier:   notifier,
		bus:        bus,
		guard:      guard,
		logger:     logger,
	}
}

// HandleCallback processes one gateway confirmation. The returned phase
// reflects the state after the transition.
func (a *PaymentAdapter) HandleCallback(ctx context.Context, gateway string, params map[string]string) (*model.Phase, error) {
	verifier, ok := a.verifiers[gateway]
	if !ok {
		return nil, transition.NotFound("payment", "unknown gateway "+gateway)
	}

	if !verifier.Verify(params) {
		metrics.PaymentCallbackCount.WithLabelValues(gateway, "bad_signature").Inc()
		return nil, transition.BadSignature("payment", "callback signature mismatch")
	}
	if !verifier.Succeeded(params) {
		metrics.PaymentCallbackCount.WithLabelValues(gateway, "failed").Inc()
		return nil, transition.External("payment", "gateway reported failure")
	}

	phaseID, err := parsePhaseID(params[verifier.OrderInfoParam()])
	if err != nil {
		return nil, transition.Precondition("payment", err.Error())
	}

	txnRef := params[verifier.TxnRefParam()]
	leaseKey := gateway + ":" + txnRef
	leased := false
	if txnRef != "" && a.guard != nil {
		acquired, err := a.guard.Acquire(ctx, leaseKey)
		if err != nil {
			return nil, err
		}
		if !acquired {
			metrics.PaymentCallbackCount.WithLabelValues(gateway, "replayed").Inc()
			return nil, transition.Conflict("payment", "callback already processed")
		}
		leased = true
	}
	// Any exit before the transaction commits must return the lease so
	// the gateway's retry of the same txn ref can try again.
	release := func() {
		if !leased {
			return
		}
		if err := a.guard.Release(ctx, leaseKey); err != nil {
			a.logger.Warn("Failed to release payment lease",
				zap.String("key", leaseKey),
				zap.Error(err),
			)
		}
	}

	phase, err := a.phases.GetByID(ctx, phaseID)
	if err != nil {
		release()
		return nil, err
	}
	if phase.CostStatus != model.CostNotTransferred {
		release()
		return nil, transition.Invalid("payment", "phase funds are already "+string(phase.CostStatus))
	}

	if err := a.phases.TransferWithCategoryCascade(ctx, phaseID); err != nil {
		release()
		return nil, err
	}
	phase.CostStatus = model.CostTransferred

	metrics.PaymentCallbackCount.WithLabelValues(gateway, "ok").Inc()
	a.logger.Info("Payment confirmed",
		zap.String("gateway", gateway),
		zap.Int("phase_id", phaseID),
		zap.String("txn_ref", txnRef),
	)

	a.notifyLeader(ctx, phase)
	a.pushSnapshots(ctx, phase)
	return phase, nil
}

func (a *PaymentAdapter) notifyLeader(ctx context.Context, phase *model.Phase) {
	selected, err := a.pitchings.GetSelected(ctx, phase.ProjectID)
	if err != nil {
		a.logger.Warn("No selected pitching for paid phase",
			zap.Int("project_id", phase.ProjectID),
			zap.Error(err),
		)
		return
	}
	leader, err := a.users.GroupLeader(ctx, selected.GroupID)
	if err != nil {
		a.logger.Warn("Failed to resolve group leader", zap.Error(err))
		return
	}
	content := fmt.Sprintf("Funds for phase %d were transferred", phase.PhaseNumber)
	if err := a.notifier.Notify(ctx, 0, *leader, model.NotificationCostTransferred, content); err != nil {
		a.logger.Warn("Failed to create transfer notification", zap.Error(err))
	}
}

func (a *PaymentAdapter) pushSnapshots(ctx context.Context, phase *model.Phase) {
	if phases, err := a.phases.ListByProject(ctx, phase.ProjectID); err == nil {
		topic := fanout.PhasesTopic(phase.ProjectID)
		if err := a.bus.Publish(topic, phases); err != nil {
			a.logger.Warn("Dropped phase snapshot push", zap.String("topic", topic), zap.Error(err))
		}
	}
	if categories, err := a.categories.ListByPhase(ctx, phase.ID); err == nil {
		topic := fanout.CategoriesTopic(phase.ID)
		if err := a.bus.Publish(topic, categories); err != nil {
			a.logger.Warn("Dropped category snapshot push", zap.String("topic", topic), zap.Error(err))
		}
	}
}

// parsePhaseID extracts the phase id embedded in the order info, e.g.
// "phase-42" or "Thanh toan phase-42".
func parsePhaseID(orderInfo string) (int, error) {
	idx := strings.LastIndex(orderInfo, "phase-")
	if idx < 0 {
		return 0, fmt.Errorf("order info carries no phase reference")
	}
	raw := orderInfo[idx+len("phase-"):]
	if end := strings.IndexFunc(raw, func(r rune) bool { return r < '0' || r > '9' }); end >= 0 {
		raw = raw[:end]
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("order info carries a malformed phase reference")
	}
	return id, nil
}
