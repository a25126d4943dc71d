package model

import "time"

// Plans a user can be on. Completion can be limited to PlanPlus.
const (
	PlanFree = "free"
	PlanPlus = "plus"
)

// User is an account on the stand-in server.
type User struct {
	ID          int       `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email,omitempty"`
	Plan        string    `json:"plan"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CompletionRecord is one completion or skip of a chore.
type CompletionRecord struct {
	ID          int        `json:"id"`
	ChoreID     int        `json:"choreId"`
	CompletedBy int        `json:"completedBy"`
	CompletedAt time.Time  `json:"completedAt"`
	DueDate     *time.Time `json:"dueDate"`
	Skipped     bool       `json:"skipped"`
}
