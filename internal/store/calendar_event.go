package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/docket-app/docket/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, firm_id, created_by, title, description, location, start_date, end_date,
	all_day, event_type, priority, status, matter_id, client_id, assigned_to,
	recurring_pattern, recurring_end_date, parent_event_id, reminder_enabled, reminder_times,
	show_in_client_portal, created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var endDate, recurringEnd sql.NullTime
	var allDay, reminderEnabled, showPortal int
	var matterID, clientID, parentID sql.NullInt64
	var assigned, reminderTimes string

	err := scanner.Scan(
		&e.ID, &e.FirmID, &e.CreatedBy, &e.Title, &e.Description, &e.Location, &e.StartDate, &endDate,
		&allDay, &e.EventType, &e.Priority, &e.Status, &matterID, &clientID, &assigned,
		&e.RecurringPattern, &recurringEnd, &parentID, &reminderEnabled, &reminderTimes,
		&showPortal, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.EndDate = timePtr(endDate)
	e.RecurringEndDate = timePtr(recurringEnd)
	e.AllDay = allDay != 0
	e.ReminderEnabled = reminderEnabled != 0
	e.ShowInClientPortal = showPortal != 0
	e.MatterID = int64Ptr(matterID)
	e.ClientID = int64Ptr(clientID)
	e.ParentEventID = int64Ptr(parentID)
	e.AssignedTo = unmarshalIDs(assigned)
	e.ReminderTimes = unmarshalMinutes(reminderTimes)

	return &e, nil
}

func (s *EventStore) Create(e *model.CalendarEvent) (*model.CalendarEvent, error) {
	status := e.Status
	if status == "" {
		status = model.EventStatusPending
	}

	result, err := s.db.Exec(
		`INSERT INTO calendar_events (firm_id, created_by, title, description, location, start_date,
		 end_date, all_day, event_type, priority, status, matter_id, client_id, assigned_to,
		 recurring_pattern, recurring_end_date, parent_event_id, reminder_enabled, reminder_times,
		 show_in_client_portal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FirmID, e.CreatedBy, e.Title, e.Description, e.Location, e.StartDate.UTC(),
		nullTime(e.EndDate), boolInt(e.AllDay), e.EventType, e.Priority, status,
		nullInt64(e.MatterID), nullInt64(e.ClientID), marshalIDs(e.AssignedTo),
		e.RecurringPattern, nullTime(e.RecurringEndDate), nullInt64(e.ParentEventID),
		boolInt(e.ReminderEnabled), marshalMinutes(e.ReminderTimes), boolInt(e.ShowInClientPortal),
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.CalendarEvent, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM calendar_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}
	return e, nil
}

// EventFilter narrows List results. Fields are AND-combined; nil/zero fields
// are ignored.
type EventFilter struct {
	StartFrom  *time.Time // start_date >=
	StartTo    *time.Time // start_date <=
	MatterID   *int64
	ClientID   *int64
	EventType  string
	AssignedTo *int64 // member id present in assigned_to
}

func (s *EventStore) List(firmID int64, f EventFilter) ([]model.CalendarEvent, error) {
	query := `SELECT ` + eventCols + ` FROM calendar_events WHERE firm_id = ?`
	args := []any{firmID}

	if f.StartFrom != nil {
		query += ` AND start_date >= ?`
		args = append(args, f.StartFrom.UTC())
	}
	if f.StartTo != nil {
		query += ` AND start_date <= ?`
		args = append(args, f.StartTo.UTC())
	}
	if f.MatterID != nil {
		query += ` AND matter_id = ?`
		args = append(args, *f.MatterID)
	}
	if f.ClientID != nil {
		query += ` AND client_id = ?`
		args = append(args, *f.ClientID)
	}
	if f.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, f.EventType)
	}
	query += ` ORDER BY start_date ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		// Assignment membership lives in a JSON column; filter here rather
		// than in SQL.
		if f.AssignedTo != nil && !containsID(e.AssignedTo, *f.AssignedTo) {
			continue
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ListChildren returns the generated occurrences of a template, ordered by
// start date.
func (s *EventStore) ListChildren(parentID int64) ([]model.CalendarEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM calendar_events WHERE parent_event_id = ? ORDER BY start_date ASC`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query event children: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event child: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// EventUpdate is a partial update; nil fields are left untouched.
// ParentEventID is deliberately absent: an occurrence's parent is immutable.
type EventUpdate struct {
	Title              *string
	Description        *string
	Location           *string
	StartDate          *time.Time
	EndDate            *time.Time
	AllDay             *bool
	EventType          *string
	Priority           *string
	Status             *string
	MatterID           *int64
	ClientID           *int64
	AssignedTo         *[]int64
	RecurringEndDate   *time.Time
	ReminderEnabled    *bool
	ReminderTimes      *[]int
	ShowInClientPortal *bool
}

// TouchesReminders reports whether applying the update requires the event's
// reminder set to be regenerated.
func (u EventUpdate) TouchesReminders() bool {
	return u.ReminderEnabled != nil || u.ReminderTimes != nil || u.StartDate != nil
}

func (s *EventStore) Update(id int64, u EventUpdate) (*model.CalendarEvent, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if u.Title != nil {
		set("title", *u.Title)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.Location != nil {
		set("location", *u.Location)
	}
	if u.StartDate != nil {
		set("start_date", u.StartDate.UTC())
	}
	if u.EndDate != nil {
		set("end_date", u.EndDate.UTC())
	}
	if u.AllDay != nil {
		set("all_day", boolInt(*u.AllDay))
	}
	if u.EventType != nil {
		set("event_type", *u.EventType)
	}
	if u.Priority != nil {
		set("priority", *u.Priority)
	}
	if u.Status != nil {
		set("status", *u.Status)
	}
	if u.MatterID != nil {
		set("matter_id", *u.MatterID)
	}
	if u.ClientID != nil {
		set("client_id", *u.ClientID)
	}
	if u.AssignedTo != nil {
		set("assigned_to", marshalIDs(*u.AssignedTo))
	}
	if u.RecurringEndDate != nil {
		set("recurring_end_date", u.RecurringEndDate.UTC())
	}
	if u.ReminderEnabled != nil {
		set("reminder_enabled", boolInt(*u.ReminderEnabled))
	}
	if u.ReminderTimes != nil {
		set("reminder_times", marshalMinutes(*u.ReminderTimes))
	}
	if u.ShowInClientPortal != nil {
		set("show_in_client_portal", boolInt(*u.ShowInClientPortal))
	}

	if len(sets) == 0 {
		return s.GetByID(id)
	}
	set("updated_at", time.Now().UTC())
	args = append(args, id)

	query := `UPDATE calendar_events SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM calendar_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}
