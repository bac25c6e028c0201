package model

import "time"

// PitchingStatus is the state of a group's bid for a project. At most one
// pitching per project is ever selected.
type PitchingStatus string

const (
	PitchingPending  PitchingStatus = "pending"
	PitchingSelected PitchingStatus = "selected"
	PitchingRejected PitchingStatus = "rejected"
)

type RegisterPitching struct {
	ID        int            `json:"id"`
	ProjectID int            `json:"project_id"`
	GroupID   int            `json:"group_id"`
	Status    PitchingStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
