package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"collabhub/internal/fanout"
	"collabhub/internal/model"
	"collabhub/pkg/metrics"
)

// DeadLetterer parks notifications whose delivery retries ran out.
type DeadLetterer interface {
	PublishToDeadLetter(routingKey string, payload any, deliveryError string) error
}

// Dispatcher drains undispatched notification rows and performs their
// best-effort deliveries: the unread-count push and, for warning
// notifications, a support email. Rows survive process restarts; a
// failed delivery is retried with backoff until the budget runs out.
type Dispatcher struct {
	notifier   *Notifier
	deadLetter DeadLetterer
	interval   time.Duration
	batchSize  int
	logger     *zap.Logger
}

func NewDispatcher(notifier *Notifier, deadLetter DeadLetterer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		notifier:   notifier,
		deadLetter: deadLetter,
		interval:   5 * time.Second,
		batchSize:  50,
		logger:     logger,
	}
}

// Start polls until ctx is cancelled. Call in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Notification dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.DispatchPending(ctx); err != nil {
				d.logger.Error("Dispatch cycle failed", zap.Error(err))
			}
		}
	}
}

// DispatchPending processes one batch. The claim marks each row
// dispatched up front, so another dispatcher running against the same
// table cannot deliver it a second time; a delivery failure returns the
// row to the pool with its retry counter bumped. Failures are isolated
// per row.
func (d *Dispatcher) DispatchPending(ctx context.Context) error {
	pending, err := d.notifier.notifications.ClaimPending(ctx, d.batchSize)
	if err != nil {
		return err
	}

	for _, n := range pending {
		if err := d.deliver(ctx, n); err != nil {
			d.logger.Warn("Notification delivery failed",
				zap.Int("notification_id", n.ID),
				zap.Int("retry_count", n.RetryCount),
				zap.Error(err),
			)
			metrics.NotificationDeliveryCount.WithLabelValues("push", "failed").Inc()

			exhausted, markErr := d.notifier.notifications.MarkDispatchFailed(ctx, n.ID)
			if markErr != nil {
				d.logger.Error("Failed to record delivery failure", zap.Error(markErr))
				continue
			}
			if exhausted && d.deadLetter != nil {
				if dlErr := d.deadLetter.PublishToDeadLetter(
					fanout.NotificationsTopic(n.ReceiverEmail), n, err.Error(),
				); dlErr != nil {
					d.logger.Error("Failed to dead letter notification", zap.Error(dlErr))
				}
			}
			continue
		}

		metrics.NotificationDeliveryCount.WithLabelValues("push", "ok").Inc()
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, n model.Notification) error {
	topic := fanout.NotificationsTopic(n.ReceiverEmail)
	if err := d.notifier.bus.Publish(topic, n); err != nil {
		return err
	}
	d.notifier.pushUnreadCount(ctx, n.ReceiverEmail)

	if n.Type == model.NotificationPhaseWarning {
		if err := d.notifier.mailer.SendSupport(n.ReceiverEmail, "Phase overdue", n.Content); err != nil {
			return err
		}
	}
	return nil
}
