package model

import "time"

// CategoryStatus only ever moves forward: todo -> doing -> done.
type CategoryStatus string

const (
	CategoryTodo  CategoryStatus = "todo"
	CategoryDoing CategoryStatus = "doing"
	CategoryDone  CategoryStatus = "done"
)

type Category struct {
	ID             int            `json:"id"`
	PhaseID        int            `json:"phase_id"`
	Name           string         `json:"name"`
	Status         CategoryStatus `json:"status"`
	ExpectedResult string         `json:"expected_result"`
	ActualResult   string         `json:"actual_result"`
	ActualEndDate  *time.Time     `json:"actual_end_date,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
