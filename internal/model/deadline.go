package model

import "time"

// Deadline status constants
const (
	DeadlineStatusPending   = "pending"
	DeadlineStatusExtended  = "extended"
	DeadlineStatusCompleted = "completed"
	DeadlineStatusCancelled = "cancelled"
)

type Deadline struct {
	ID                 int64      `json:"id"`
	FirmID             int64      `json:"firm_id"`
	CreatedBy          int64      `json:"created_by"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	DueDate            time.Time  `json:"due_date"`
	CalculatedFromDate *time.Time `json:"calculated_from_date"`
	CalculationMethod  string     `json:"calculation_method"`
	DeadlineType       string     `json:"deadline_type"`
	Jurisdiction       string     `json:"jurisdiction"`
	Priority           string     `json:"priority"`
	Status             string     `json:"status"`
	MatterID           *int64     `json:"matter_id"`
	AssignedTo         []int64    `json:"assigned_to"`
	RelatedEventID     *int64     `json:"related_event_id"`
	CompletedAt        *time.Time `json:"completed_at"`
	CompletedBy        *int64     `json:"completed_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
