package model

import "time"

type Group struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	LeaderID  int       `json:"leader_id"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	GroupID   *int      `json:"group_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is the authenticated identity attached to a request by the
// auth middleware. Authentication itself lives outside this module.
type Principal struct {
	UserID  int    `json:"user_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	GroupID int    `json:"group_id"`
}
