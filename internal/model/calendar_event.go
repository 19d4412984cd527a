package model

import "time"

// Event status constants
const (
	EventStatusPending     = "pending"
	EventStatusCompleted   = "completed"
	EventStatusCancelled   = "cancelled"
	EventStatusRescheduled = "rescheduled"
)

type CalendarEvent struct {
	ID                 int64      `json:"id"`
	FirmID             int64      `json:"firm_id"`
	CreatedBy          int64      `json:"created_by"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Location           string     `json:"location"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	AllDay             bool       `json:"all_day"`
	EventType          string     `json:"event_type"`
	Priority           string     `json:"priority"`
	Status             string     `json:"status"`
	MatterID           *int64     `json:"matter_id"`
	ClientID           *int64     `json:"client_id"`
	AssignedTo         []int64    `json:"assigned_to"`
	RecurringPattern   string     `json:"recurring_pattern"`
	RecurringEndDate   *time.Time `json:"recurring_end_date"`
	ParentEventID      *int64     `json:"parent_event_id"`
	ReminderEnabled    bool       `json:"reminder_enabled"`
	ReminderTimes      []int      `json:"reminder_times"`
	ShowInClientPortal bool       `json:"show_in_client_portal"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsTemplate reports whether the event is a recurrence template: it carries a
// recurring pattern and has no parent. Generated occurrences always carry the
// template's id as ParentEventID and never a pattern of their own.
func (e *CalendarEvent) IsTemplate() bool {
	return e.RecurringPattern != "" && e.ParentEventID == nil
}
