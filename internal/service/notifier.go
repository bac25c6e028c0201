package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"collabhub/internal/fanout"
	"collabhub/internal/model"
	"collabhub/internal/transition"
	"collabhub/pkg/rbac"
)

// Notifier persists notification rows and delivers them out of band. The
// row insert is durable and cheap; delivery (unread-count push, email)
// runs through the dispatcher with retries, so a delivery failure never
// touches the transition that produced the notification.
type Notifier struct {
	notifications NotificationStore
	bus           fanout.Bus
	mailer        Mailer
	rdb           *redis.Client
	logger        *zap.Logger
}

func NewNotifier(
	notifications NotificationStore,
	bus fanout.Bus,
	mailer Mailer,
	rdb *redis.Client,
	logger *zap.Logger,
) *Notifier {
	return &Notifier{
		notifications: notifications,
		bus:           bus,
		mailer:        mailer,
		rdb:           rdb,
		logger:        logger,
	}
}

// Notify records one notification. Errors are logged and swallowed by
// callers: the state transition is the source of truth.
func (n *Notifier) Notify(ctx context.Context, senderID int, receiver model.User, typ, content string) error {
	notif := &model.Notification{
		SenderID:      senderID,
		ReceiverID:    receiver.ID,
		ReceiverEmail: receiver.Email,
		Type:          typ,
		Content:       content,
	}
	if err := n.notifications.Insert(ctx, notif); err != nil {
		return err
	}
	return nil
}

// MarkRead flips the read flag and re-pushes the unread count so live
// viewers converge immediately. Only the receiver (or an admin) may
// touch the flag.
func (n *Notifier) MarkRead(ctx context.Context, id int, actor model.Principal) error {
	notif, err := n.notifications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role != rbac.RoleAdmin && notif.ReceiverID != actor.UserID {
		return transition.Forbidden("notification", "notification belongs to another user")
	}
	if err := n.notifications.MarkRead(ctx, id); err != nil {
		return err
	}
	n.pushUnreadCount(ctx, notif.ReceiverEmail)
	return nil
}

// pushUnreadCount recomputes the receiver's unread count, caches it and
// pushes the snapshot. Best-effort.
func (n *Notifier) pushUnreadCount(ctx context.Context, receiverEmail string) {
	count, err := n.notifications.CountUnread(ctx, receiverEmail)
	if err != nil {
		n.logger.Warn("Failed to count unread notifications",
			zap.String("receiver", receiverEmail),
			zap.Error(err),
		)
		return
	}

	if n.rdb != nil {
		key := fmt.Sprintf("unread:%s", receiverEmail)
		if err := n.rdb.Set(ctx, key, count, 24*time.Hour).Err(); err != nil {
			n.logger.Warn("Failed to cache unread count", zap.Error(err))
		}
	}

	topic := fanout.NotificationsTopic(receiverEmail)
	if err := n.bus.Publish(topic, map[string]any{"unread": count}); err != nil {
		n.logger.Warn("Dropped unread-count push",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}
