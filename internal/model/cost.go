package model

import "time"

// Cost is the monetary commitment tied 1:1 to a Category. Amounts are in
// minor currency units.
type Cost struct {
	ID           int       `json:"id"`
	CategoryID   int       `json:"category_id"`
	ExpectedCost int64     `json:"expected_cost"`
	ActualCost   *int64    `json:"actual_cost,omitempty"`
	Status       CostState `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Evidence is a proof-of-spend artifact attached to a Cost once the funds
// are confirmed received.
type Evidence struct {
	ID          int       `json:"id"`
	CostID      int       `json:"cost_id"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}
