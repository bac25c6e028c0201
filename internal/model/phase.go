package model

import "time"

// PhaseStatus is the lifecycle state of a Phase.
type PhaseStatus string

const (
	PhasePending    PhaseStatus = "pending"
	PhaseProcessing PhaseStatus = "processing"
	PhaseWarning    PhaseStatus = "warning"
	PhaseDone       PhaseStatus = "done"
)

// CostState tracks money movement for a Phase or a Cost. The phase-level
// value and the cost-level value run the same machine independently.
type CostState string

const (
	CostNotTransferred CostState = "not_transferred"
	CostTransferred    CostState = "transferred"
	CostReceived       CostState = "received"
)

// MaxPhasesPerProject caps the number of delivery stages per project.
const MaxPhasesPerProject = 4

type Phase struct {
	ID                int         `json:"id"`
	ProjectID         int         `json:"project_id"`
	PhaseNumber       int         `json:"phase_number"`
	Status            PhaseStatus `json:"status"`
	CostStatus        CostState   `json:"cost_status"`
	StartDate         time.Time   `json:"start_date"`
	ExpectedEndDate   time.Time   `json:"expected_end_date"`
	ActualEndDate     *time.Time  `json:"actual_end_date,omitempty"`
	ExpectedCostTotal int64       `json:"expected_cost_total"`
	ActualCostTotal   int64       `json:"actual_cost_total"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}
