package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"collabhub/internal/model"
	"collabhub/internal/transition"
)

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	query := `
        INSERT INTO notifications (sender_id, receiver_id, receiver_email, type, content, is_new, dispatched)
        VALUES ($1, $2, $3, $4, $5, TRUE, FALSE)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		n.SenderID,
		n.ReceiverID,
		n.ReceiverEmail,
		n.Type,
		n.Content,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert notification",
			zap.Int("receiver_id", n.ReceiverID),
			zap.String("type", n.Type),
			zap.Error(err),
		)
		return err
	}
	n.IsNew = true
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id int) (*model.Notification, error) {
	query := `
        SELECT id, sender_id, receiver_id, receiver_email, type, content,
               is_new, dispatched, retry_count, next_retry_at, created_at
        FROM notifications
        WHERE id = $1
    `
	var n model.Notification
	err := r.db.QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.SenderID,
		&n.ReceiverID,
		&n.ReceiverEmail,
		&n.Type,
		&n.Content,
		&n.IsNew,
		&n.Dispatched,
		&n.RetryCount,
		&n.NextRetryAt,
		&n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, transition.NotFound("notification", "notification does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkRead flips the is_new flag, the only mutation a notification allows
// once created.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_new = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return transition.NotFound("notification", "notification does not exist")
	}
	return nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, receiverEmail string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE receiver_email = $1 AND is_new`,
		receiverEmail,
	).Scan(&count)
	return count, err
}

// ClaimPending atomically claims a batch of undispatched notifications
// whose retry window has come, oldest first. The claim is the same
// statement that marks them dispatched, so two pollers over the same
// table can never pick up the same row; a failed delivery is un-claimed
// by MarkDispatchFailed.
func (r *NotificationRepository) ClaimPending(ctx context.Context, limit int) ([]model.Notification, error) {
	query := `
        UPDATE notifications
        SET dispatched = TRUE
        WHERE id IN (
            SELECT id FROM notifications
            WHERE NOT dispatched
              AND retry_count < $1
              AND (next_retry_at IS NULL OR next_retry_at <= NOW())
            ORDER BY created_at
            LIMIT $2
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, sender_id, receiver_id, receiver_email, type, content,
                  is_new, dispatched, retry_count, next_retry_at, created_at
    `
	rows, err := r.db.Query(ctx, query, maxDispatchRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(
			&n.ID,
			&n.SenderID,
			&n.ReceiverID,
			&n.ReceiverEmail,
			&n.Type,
			&n.Content,
			&n.IsNew,
			&n.Dispatched,
			&n.RetryCount,
			&n.NextRetryAt,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

const maxDispatchRetries = 5

// MarkDispatchFailed returns a claimed row to the pending pool and bumps
// its retry counter with a linear backoff. Once retry_count reaches the
// budget the row stops matching ClaimPending and the dispatcher parks it
// on the dead letter exchange.
func (r *NotificationRepository) MarkDispatchFailed(ctx context.Context, id int) (exhausted bool, err error) {
	var retryCount int
	err = r.db.QueryRow(ctx, `
        UPDATE notifications
        SET dispatched = FALSE,
            retry_count = retry_count + 1,
            next_retry_at = NOW() + (retry_count + 1) * INTERVAL '5 seconds'
        WHERE id = $1
        RETURNING retry_count
    `, id).Scan(&retryCount)
	if err != nil {
		return false, err
	}
	return retryCount >= maxDispatchRetries, nil
}
