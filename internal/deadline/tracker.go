package deadline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docket-app/docket/internal/calendar"
	"github.com/docket-app/docket/internal/dates"
	"github.com/docket-app/docket/internal/model"
	"github.com/docket-app/docket/internal/store"
)

var (
	ErrNotFound   = errors.New("deadline not found")
	ErrValidation = errors.New("invalid deadline")
)

// mirrorEventType marks the calendar events that shadow legal deadlines.
const mirrorEventType = "filing_deadline"

// Tracker manages legal deadlines and keeps each one mirrored into a
// calendar event so deadlines surface in calendar views and reminder
// dispatch without a second pipeline.
type Tracker struct {
	deadlines *store.DeadlineStore
	calendar  *calendar.Service
	logger    *slog.Logger
}

func NewTracker(deadlines *store.DeadlineStore, cal *calendar.Service, logger *slog.Logger) *Tracker {
	return &Tracker{deadlines: deadlines, calendar: cal, logger: logger}
}

// CreateInput is a deadline plus the reminder configuration for its mirror
// event. The reminder fields live on the event, not the deadline row.
type CreateInput struct {
	model.Deadline
	ReminderEnabled    bool
	ReminderTimes      []int
	ShowInClientPortal bool
}

// CreateDeadline inserts the deadline and, unless the caller supplied an
// existing related event, creates an all-day mirror event on the due date
// and links it back.
func (t *Tracker) CreateDeadline(in *CreateInput) (*model.Deadline, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due date is required", ErrValidation)
	}

	created, err := t.deadlines.Create(&in.Deadline)
	if err != nil {
		t.logger.Error("create deadline", "firm_id", in.FirmID, "error", err)
		return nil, err
	}

	if created.RelatedEventID != nil {
		return created, nil
	}

	event, err := t.calendar.CreateEvent(&model.CalendarEvent{
		FirmID:             created.FirmID,
		CreatedBy:          created.CreatedBy,
		Title:              created.Title,
		Description:        created.Description,
		StartDate:          created.DueDate,
		AllDay:             true,
		EventType:          mirrorEventType,
		Priority:           created.Priority,
		MatterID:           created.MatterID,
		AssignedTo:         created.AssignedTo,
		ReminderEnabled:    in.ReminderEnabled,
		ReminderTimes:      in.ReminderTimes,
		ShowInClientPortal: in.ShowInClientPortal,
	})
	if err != nil {
		t.logger.Error("create deadline mirror event", "deadline_id", created.ID, "error", err)
		return nil, err
	}

	linked, err := t.deadlines.Update(created.ID, store.DeadlineUpdate{RelatedEventID: &event.ID})
	if err != nil {
		t.logger.Error("link deadline to mirror event", "deadline_id", created.ID, "event_id", event.ID, "error", err)
		return nil, err
	}
	return linked, nil
}

func (t *Tracker) GetDeadline(id int64) (*model.Deadline, error) {
	d, err := t.deadlines.GetByID(id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return d, nil
}

func (t *Tracker) GetDeadlines(firmID int64, f store.DeadlineFilter) ([]model.Deadline, error) {
	return t.deadlines.List(firmID, f)
}

// GetApproaching returns open deadlines due within the next seven days.
func (t *Tracker) GetApproaching(firmID int64) ([]model.Deadline, error) {
	return t.deadlines.ListApproaching(firmID, time.Now())
}

// GetOverdue returns open deadlines whose due date has passed.
func (t *Tracker) GetOverdue(firmID int64) ([]model.Deadline, error) {
	return t.deadlines.ListOverdue(firmID, time.Now())
}

// UpdateDeadline applies a partial update and propagates the shared fields
// to the mirror event. A deadline status maps onto the event status space
// before propagation.
func (t *Tracker) UpdateDeadline(id int64, u store.DeadlineUpdate) (*model.Deadline, error) {
	existing, err := t.deadlines.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	updated, err := t.deadlines.Update(id, u)
	if err != nil {
		t.logger.Error("update deadline", "deadline_id", id, "error", err)
		return nil, err
	}

	if updated.RelatedEventID == nil {
		return updated, nil
	}

	eventUpdate, dirty := mirrorUpdate(u)
	if !dirty {
		return updated, nil
	}

	if _, err := t.calendar.UpdateEvent(*updated.RelatedEventID, eventUpdate); err != nil {
		if errors.Is(err, calendar.ErrNotFound) {
			// The mirror was deleted out from under us; the deadline itself
			// is still authoritative.
			t.logger.Warn("deadline mirror event missing", "deadline_id", id, "event_id", *updated.RelatedEventID)
			return updated, nil
		}
		t.logger.Error("update deadline mirror event", "deadline_id", id, "event_id", *updated.RelatedEventID, "error", err)
		return nil, err
	}
	return updated, nil
}

// mirrorUpdate translates the deadline fields shared with the mirror event.
func mirrorUpdate(u store.DeadlineUpdate) (store.EventUpdate, bool) {
	var e store.EventUpdate
	dirty := false

	if u.Title != nil {
		e.Title = u.Title
		dirty = true
	}
	if u.Description != nil {
		e.Description = u.Description
		dirty = true
	}
	if u.DueDate != nil {
		e.StartDate = u.DueDate
		dirty = true
	}
	if u.Priority != nil {
		e.Priority = u.Priority
		dirty = true
	}
	if u.AssignedTo != nil {
		e.AssignedTo = u.AssignedTo
		dirty = true
	}
	if u.Status != nil {
		mapped := mapStatus(*u.Status)
		e.Status = &mapped
		dirty = true
	}
	return e, dirty
}

// mapStatus projects a deadline status onto the event status space. An
// extended deadline shows as a rescheduled event.
func mapStatus(deadlineStatus string) string {
	switch deadlineStatus {
	case model.DeadlineStatusCompleted:
		return model.EventStatusCompleted
	case model.DeadlineStatusCancelled:
		return model.EventStatusCancelled
	case model.DeadlineStatusExtended:
		return model.EventStatusRescheduled
	}
	return model.EventStatusPending
}

// CompleteDeadline marks the deadline completed at most once; a repeat call
// keeps the original completer and timestamp. The mirror event follows.
func (t *Tracker) CompleteDeadline(id, userID int64) (*model.Deadline, error) {
	existing, err := t.deadlines.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	won, err := t.deadlines.Complete(id, userID, time.Now())
	if err != nil {
		t.logger.Error("complete deadline", "deadline_id", id, "error", err)
		return nil, err
	}

	completed, err := t.deadlines.GetByID(id)
	if err != nil {
		return nil, err
	}

	if won && completed.RelatedEventID != nil {
		status := model.EventStatusCompleted
		if _, err := t.calendar.UpdateEvent(*completed.RelatedEventID, store.EventUpdate{Status: &status}); err != nil {
			if !errors.Is(err, calendar.ErrNotFound) {
				t.logger.Error("complete deadline mirror event", "deadline_id", id, "event_id", *completed.RelatedEventID, "error", err)
				return nil, err
			}
			t.logger.Warn("deadline mirror event missing", "deadline_id", id, "event_id", *completed.RelatedEventID)
		}
	}
	return completed, nil
}

// DeleteDeadline removes the deadline and its mirror event (with the
// event's reminders).
func (t *Tracker) DeleteDeadline(id int64) error {
	existing, err := t.deadlines.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	if existing.RelatedEventID != nil {
		if err := t.calendar.DeleteEvent(*existing.RelatedEventID); err != nil && !errors.Is(err, calendar.ErrNotFound) {
			t.logger.Error("delete deadline mirror event", "deadline_id", id, "event_id", *existing.RelatedEventID, "error", err)
			return err
		}
	}

	if err := t.deadlines.Delete(id); err != nil {
		t.logger.Error("delete deadline", "deadline_id", id, "error", err)
		return err
	}
	return nil
}

// CalculateDueDate computes a due date from a trigger date under a
// jurisdiction rule: calendar days first, then business days from the
// adjusted date.
func (t *Tracker) CalculateDueDate(from time.Time, rule dates.JurisdictionRule) time.Time {
	return dates.CalculateDeadline(from, rule)
}
