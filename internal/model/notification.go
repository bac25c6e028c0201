package model

import "time"

// Notification types created by the orchestrator and the sweep.
const (
	NotificationPhaseWarning     = "phase_warning"
	NotificationPhaseDone        = "phase_done"
	NotificationCostTransferred  = "cost_transferred"
	NotificationPitchingSelected = "pitching_selected"
)

// Notification is an immutable record of one cross-user event. Only the
// IsNew read flag and the dispatch bookkeeping fields are ever updated.
type Notification struct {
	ID            int        `json:"id"`
	SenderID      int        `json:"sender_id"`
	ReceiverID    int        `json:"receiver_id"`
	ReceiverEmail string     `json:"receiver_email"`
	Type          string     `json:"type"`
	Content       string     `json:"content"`
	IsNew         bool       `json:"is_new"`
	Dispatched    bool       `json:"dispatched"`
	RetryCount    int        `json:"retry_count"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
