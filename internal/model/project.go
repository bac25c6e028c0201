package model

import "time"

// ProjectStatus is the lifecycle state of a Project.
type ProjectStatus string

const (
	ProjectPending    ProjectStatus = "pending"
	ProjectPublic     ProjectStatus = "public"
	ProjectProcessing ProjectStatus = "processing"
	ProjectEnd        ProjectStatus = "end"
	ProjectDone       ProjectStatus = "done"
	ProjectExpired    ProjectStatus = "expired"
)

// BusinessType distinguishes engagements that require phased delivery
// ("project") from lightweight ones that do not ("plan").
type BusinessType string

const (
	BusinessTypePlan    BusinessType = "plan"
	BusinessTypeProject BusinessType = "project"
)

// Terminal reports whether the status admits no further transitions.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectDone || s == ProjectExpired
}

type Project struct {
	ID              int           `json:"id"`
	BusinessID      int           `json:"business_id"`
	Title           string        `json:"title"`
	Status          ProjectStatus `json:"status"`
	BusinessType    BusinessType  `json:"business_type"`
	StartDate       time.Time     `json:"start_date"`
	ExpectedEndDate time.Time     `json:"expected_end_date"`
	ActualEndDate   *time.Time    `json:"actual_end_date,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
