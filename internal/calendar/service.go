package calendar

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docket-app/docket/internal/dates"
	"github.com/docket-app/docket/internal/model"
	"github.com/docket-app/docket/internal/reminder"
	"github.com/docket-app/docket/internal/store"
)

// DefaultOccurrences is how far a template expands when the caller does not
// ask for a specific count.
const DefaultOccurrences = 10

var (
	ErrNotFound   = errors.New("event not found")
	ErrValidation = errors.New("invalid event")
)

// Service owns the calendar event lifecycle: CRUD, recurrence expansion,
// and keeping each event's reminder set in step with its configuration.
type Service struct {
	events    *store.EventStore
	reminders *reminder.Scheduler
	logger    *slog.Logger
}

func NewService(events *store.EventStore, reminders *reminder.Scheduler, logger *slog.Logger) *Service {
	return &Service{events: events, reminders: reminders, logger: logger}
}

// CreateEvent inserts the event. A recurring event with no parent becomes a
// template; its reminders are registered during expansion rather than here.
// Non-recurring events get their reminders immediately.
func (s *Service) CreateEvent(event *model.CalendarEvent) (*model.CalendarEvent, error) {
	if event.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if event.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrValidation)
	}
	for _, m := range event.ReminderTimes {
		if m < 0 {
			return nil, fmt.Errorf("%w: negative reminder offset %d", ErrValidation, m)
		}
	}
	if event.RecurringPattern != "" {
		if p := dates.ParsePattern(event.RecurringPattern); !dates.KnownType(p.Type) {
			return nil, fmt.Errorf("%w: %q", dates.ErrInvalidPattern, event.RecurringPattern)
		}
	}

	created, err := s.events.Create(event)
	if err != nil {
		s.logger.Error("create event", "firm_id", event.FirmID, "error", err)
		return nil, err
	}

	if !created.IsTemplate() {
		if err := s.reminders.SetupEventReminders(created); err != nil {
			s.logger.Error("setup reminders", "event_id", created.ID, "error", err)
			return nil, err
		}
	}
	return created, nil
}

// ExpandOccurrences materializes up to count dates of a template's
// recurrence, inserting a child event for each date that does not already
// have one (matched by exact timestamp). The template itself occupies
// position 0 and is never duplicated; its own reminders are registered on
// first expansion. Returns only the newly created children.
func (s *Service) ExpandOccurrences(templateID int64, count int) ([]model.CalendarEvent, error) {
	if count <= 0 {
		count = DefaultOccurrences
	}

	template, err := s.events.GetByID(templateID)
	if err != nil {
		return nil, err
	}
	if template == nil || !template.IsTemplate() {
		return nil, fmt.Errorf("%w: recurring template %d", ErrNotFound, templateID)
	}

	pattern := dates.ParsePattern(template.RecurringPattern)
	occurrences, err := dates.GenerateOccurrences(template.StartDate, pattern, count, template.RecurringEndDate)
	if err != nil {
		return nil, err
	}

	if template.ReminderEnabled && len(template.ReminderTimes) > 0 {
		ownReminders, err := s.reminders.ListEventReminders(template.ID)
		if err != nil {
			return nil, err
		}
		if len(ownReminders) == 0 {
			if err := s.reminders.SetupEventReminders(template); err != nil {
				s.logger.Error("setup template reminders", "event_id", template.ID, "error", err)
				return nil, err
			}
		}
	}

	existing, err := s.events.ListChildren(template.ID)
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]bool, len(existing))
	for _, child := range existing {
		taken[child.StartDate.UTC().Unix()] = true
	}

	var duration time.Duration
	if template.EndDate != nil {
		duration = template.EndDate.Sub(template.StartDate)
	}

	var created []model.CalendarEvent
	for i, start := range occurrences {
		if i == 0 {
			// Position 0 is the template's own start date.
			continue
		}
		if taken[start.UTC().Unix()] {
			continue
		}

		child := &model.CalendarEvent{
			FirmID:             template.FirmID,
			CreatedBy:          template.CreatedBy,
			Title:              template.Title,
			Description:        template.Description,
			Location:           template.Location,
			StartDate:          start,
			AllDay:             template.AllDay,
			EventType:          template.EventType,
			Priority:           template.Priority,
			Status:             model.EventStatusPending,
			MatterID:           template.MatterID,
			ClientID:           template.ClientID,
			AssignedTo:         template.AssignedTo,
			ParentEventID:      &template.ID,
			ReminderEnabled:    template.ReminderEnabled,
			ReminderTimes:      template.ReminderTimes,
			ShowInClientPortal: template.ShowInClientPortal,
		}
		if template.EndDate != nil {
			end := start.Add(duration)
			child.EndDate = &end
		}

		inserted, err := s.events.Create(child)
		if err != nil {
			s.logger.Error("create occurrence", "template_id", template.ID, "start", start, "error", err)
			return created, err
		}
		if err := s.reminders.SetupEventReminders(inserted); err != nil {
			s.logger.Error("setup occurrence reminders", "event_id", inserted.ID, "error", err)
			return created, err
		}
		created = append(created, *inserted)
	}
	return created, nil
}

func (s *Service) GetEvent(id int64) (*model.CalendarEvent, error) {
	event, err := s.events.GetByID(id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return event, nil
}

func (s *Service) ListEvents(firmID int64, f store.EventFilter) ([]model.CalendarEvent, error) {
	return s.events.List(firmID, f)
}

// UpdateEvent applies a partial update. When the update touches a
// reminder-relevant field (enabled flag, offsets, start date) the event's
// reminders are dropped first and regenerated from the resulting state.
func (s *Service) UpdateEvent(id int64, u store.EventUpdate) (*model.CalendarEvent, error) {
	existing, err := s.events.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	if u.ReminderTimes != nil {
		for _, m := range *u.ReminderTimes {
			if m < 0 {
				return nil, fmt.Errorf("%w: negative reminder offset %d", ErrValidation, m)
			}
		}
	}

	regen := u.TouchesReminders()
	if regen {
		if err := s.reminders.InvalidateEventReminders(id); err != nil {
			s.logger.Error("invalidate reminders", "event_id", id, "error", err)
			return nil, err
		}
	}

	updated, err := s.events.Update(id, u)
	if err != nil {
		s.logger.Error("update event", "event_id", id, "error", err)
		return nil, err
	}

	if regen && updated.ReminderEnabled && len(updated.ReminderTimes) > 0 {
		if err := s.reminders.SetupEventReminders(updated); err != nil {
			s.logger.Error("regenerate reminders", "event_id", id, "error", err)
			return nil, err
		}
	}
	return updated, nil
}

// DeleteEvent removes the event and its reminders. Deleting a template
// cascades to every generated occurrence and their reminders first.
func (s *Service) DeleteEvent(id int64) error {
	event, err := s.events.GetByID(id)
	if err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	if event.IsTemplate() {
		children, err := s.events.ListChildren(id)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := s.reminders.InvalidateEventReminders(child.ID); err != nil {
				s.logger.Error("delete occurrence reminders", "event_id", child.ID, "template_id", id, "error", err)
				return err
			}
			if err := s.events.Delete(child.ID); err != nil {
				s.logger.Error("delete occurrence", "event_id", child.ID, "template_id", id, "error", err)
				return err
			}
		}
	}

	if err := s.reminders.InvalidateEventReminders(id); err != nil {
		s.logger.Error("delete event reminders", "event_id", id, "error", err)
		return err
	}
	if err := s.events.Delete(id); err != nil {
		s.logger.Error("delete event", "event_id", id, "error", err)
		return err
	}
	return nil
}
