package reminder

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/docket-app/docket/internal/model"
	"github.com/docket-app/docket/internal/store"
)

// ErrValidation is returned for reminder configuration that fails shape or
// range checks.
var ErrValidation = errors.New("invalid reminder configuration")

// Notifier delivers one composed notification to a set of firm members. The
// implementation resolves member ids to delivery addresses itself.
type Notifier interface {
	Notify(subject, htmlBody string, recipients []int64) error
}

// Scheduler derives reminder rows from event configuration and sweeps for
// due reminders on a fixed schedule.
type Scheduler struct {
	reminders *store.ReminderStore
	events    *store.EventStore
	logger    *slog.Logger

	mu       sync.Mutex // serializes sweeps; see ProcessDue
	channels map[model.Channel]Notifier
	cron     *cron.Cron
}

func NewScheduler(reminders *store.ReminderStore, events *store.EventStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		reminders: reminders,
		events:    events,
		logger:    logger,
		channels:  make(map[model.Channel]Notifier),
	}
}

// RegisterChannel wires a delivery channel. Dispatch skips channels without
// a registered notifier.
func (s *Scheduler) RegisterChannel(ch model.Channel, n Notifier) {
	s.channels[ch] = n
}

// SetupEventReminders creates one pending reminder per configured offset,
// addressed to the event's assignees. No-op unless the event has reminders
// enabled and at least one offset.
func (s *Scheduler) SetupEventReminders(event *model.CalendarEvent) error {
	if !event.ReminderEnabled || len(event.ReminderTimes) == 0 {
		return nil
	}

	for _, minutes := range event.ReminderTimes {
		if minutes < 0 {
			return fmt.Errorf("%w: negative minutes_before %d", ErrValidation, minutes)
		}
	}

	for _, minutes := range event.ReminderTimes {
		_, err := s.reminders.Create(&model.Reminder{
			FirmID:        event.FirmID,
			EventID:       event.ID,
			Channel:       model.ChannelEmail,
			MinutesBefore: minutes,
			Recipients:    event.AssignedTo,
		})
		if err != nil {
			s.logger.Error("setup reminder", "event_id", event.ID, "minutes_before", minutes, "error", err)
			return err
		}
	}
	return nil
}

// ListEventReminders returns the reminders attached to an event.
func (s *Scheduler) ListEventReminders(eventID int64) ([]model.Reminder, error) {
	return s.reminders.ListByEvent(eventID)
}

// InvalidateEventReminders drops every reminder attached to the event.
// Called before regeneration when reminder-relevant fields change, and
// during event deletion.
func (s *Scheduler) InvalidateEventReminders(eventID int64) error {
	return s.reminders.DeleteByEvent(eventID)
}

// ProcessDue scans pending reminders and dispatches those whose moment has
// arrived, marking each sent at most once. Sweeps are serialized with a
// mutex so overlapping ticks cannot double-send within the process; the
// guarded MarkSent update covers racing processes.
func (s *Scheduler) ProcessDue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.reminders.ListPending()
	if err != nil {
		return fmt.Errorf("list pending reminders: %w", err)
	}

	now := time.Now()
	for _, r := range pending {
		event, err := s.events.GetByID(r.EventID)
		if err != nil {
			s.logger.Error("load reminder event", "reminder_id", r.ID, "event_id", r.EventID, "error", err)
			continue
		}
		if event == nil {
			// Orphaned reminder; the owning event is gone.
			s.logger.Warn("reminder for missing event", "reminder_id", r.ID, "event_id", r.EventID)
			continue
		}

		due := event.StartDate.Add(-time.Duration(r.MinutesBefore) * time.Minute)
		if due.After(now) {
			continue
		}

		if err := s.dispatch(&r, event); err != nil {
			s.logger.Error("dispatch reminder", "reminder_id", r.ID, "event_id", event.ID, "error", err)
			continue
		}

		won, err := s.reminders.MarkSent(r.ID, now)
		if err != nil {
			s.logger.Error("mark reminder sent", "reminder_id", r.ID, "error", err)
			continue
		}
		if !won {
			s.logger.Warn("reminder already marked sent elsewhere", "reminder_id", r.ID)
		}
	}
	return nil
}

// Start begins sweeping on the given schedule ("@every 1m" style cron spec).
func (s *Scheduler) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := s.ProcessDue(); err != nil {
			s.logger.Error("reminder sweep", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminder sweep: %w", err)
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the sweep schedule and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
