package calendar

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/docket-app/docket/internal/database"
	"github.com/docket-app/docket/internal/dates"
	"github.com/docket-app/docket/internal/model"
	"github.com/docket-app/docket/internal/reminder"
	"github.com/docket-app/docket/internal/store"
)

type noopNotifier struct{}

func (noopNotifier) Notify(subject, htmlBody string, recipients []int64) error { return nil }

func ptr[T any](v T) *T { return &v }

func newFixture(t *testing.T) (*Service, *store.ReminderStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	events := store.NewEventStore(db)
	reminders := store.NewReminderStore(db)
	sched := reminder.NewScheduler(reminders, events, slog.Default())
	sched.RegisterChannel(model.ChannelEmail, noopNotifier{})

	return NewService(events, sched, slog.Default()), reminders
}

func TestCreateEventValidation(t *testing.T) {
	svc, _ := newFixture(t)
	start := time.Now().Add(time.Hour)

	tests := []struct {
		name  string
		event model.CalendarEvent
		want  error
	}{
		{"missing title", model.CalendarEvent{FirmID: 1, StartDate: start}, ErrValidation},
		{"missing start", model.CalendarEvent{FirmID: 1, Title: "hearing"}, ErrValidation},
		{
			"negative reminder offset",
			model.CalendarEvent{FirmID: 1, Title: "hearing", StartDate: start, ReminderTimes: []int{-10}},
			ErrValidation,
		},
		{
			"unknown pattern type",
			model.CalendarEvent{FirmID: 1, Title: "hearing", StartDate: start, RecurringPattern: "fortnightly:1"},
			dates.ErrInvalidPattern,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateEvent(&tt.event); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateEventSetsUpReminders(t *testing.T) {
	svc, reminders := newFixture(t)

	created, err := svc.CreateEvent(&model.CalendarEvent{
		FirmID: 1, Title: "deposition", StartDate: time.Now().Add(72 * time.Hour),
		AssignedTo: []int64{2, 4}, ReminderEnabled: true, ReminderTimes: []int{60, 1440},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := reminders.ListByEvent(created.ID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("reminders = %d, want 2", len(got))
	}
}

func TestCreateEventTemplateDefersReminders(t *testing.T) {
	svc, reminders := newFixture(t)

	template, err := svc.CreateEvent(&model.CalendarEvent{
		FirmID: 1, Title: "weekly standup", StartDate: time.Now().Add(24 * time.Hour),
		RecurringPattern: "weekly:1", ReminderEnabled: true, ReminderTimes: []int{30},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !template.IsTemplate() {
		t.Fatal("expected a recurring template")
	}

	got, err := reminders.ListByEvent(template.ID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("reminders before expansion = %d, want 0", len(got))
	}
}

func TestExpandOccurrencesWeekly(t *testing.T) {
	svc, reminders := newFixture(t)

	start := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)
	template, err := svc.CreateEvent(&model.CalendarEvent{
		FirmID: 1, Title: "case review", StartDate: start,
		AssignedTo:       []int64{3},
		RecurringPattern: "weekly:1",
		ReminderEnabled:  true, ReminderTimes: []int{60},
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	created, err := svc.ExpandOccurrences(template.ID, 4)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("new occurrences = %d, want 3 (template holds the first date)", len(created))
	}

	wantStarts := []time.Time{
		time.Date(2025, time.January, 13, 9, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 27, 9, 0, 0, 0, time.UTC),
	}
	for i, child := range created {
		if !child.StartDate.Equal(wantStarts[i]) {
			t.Errorf("occurrence %d start = %v, want %v", i, child.StartDate, wantStarts[i])
		}
		if child.ParentEventID == nil || *child.ParentEventID != template.ID {
			t.Errorf("occurrence %d parent = %v, want %d", i, child.ParentEventID, template.ID)
		}
		if child.RecurringPattern != "" {
			t.Errorf("occurrence %d carries pattern %q", i, child.RecurringPattern)
		}
		if child.Status != model.EventStatusPending {
			t.Errorf("occurrence %d status = %q, want pending", i, child.Status)
		}
	}

	// Template and every occurrence end up with exactly one pending reminder.
	ids := []int64{template.ID}
	for _, child := range created {
		ids = append(ids, child.ID)
	}
	for _, id := range ids {
		rs, err := reminders.ListByEvent(id)
		if err != nil {
			t.Fatalf("list reminders for %d: %v", id, err)
		}
		if len(rs) != 1 {
			t.Errorf("event %d reminders = %d, want 1", id, len(rs))
			continue
		}
		if rs[0].Status != model.ReminderStatusPending || rs[0].MinutesBefore != 60 {
			t.Errorf("event %d reminder = %+v, want pending 60-minute lead", id, rs[0])
		}
	}
}

func TestExpandOccurrencesIdempotent(t *testing.T) {
	svc, reminders := newFixture(t)

	template, err := svc.CreateEvent(&model.CalendarEvent{
		FirmID: 1, Title: "status check", StartDate: time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC),
		RecurringPattern: "daily:1", ReminderEnabled: true, ReminderTimes: []int{15},
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	first, err := svc.ExpandOccurrences(template.ID, 5)
	if err != nil {
		t.Fatalf("first expand: %v", err)
	}
	if len(first) != 4 {
		t.Fatalf("first expand = %d, want 4", len(first))
	}

	second, err := svc.ExpandOccurrences(template.ID, 5)
	if err != nil {
		t.Fatalf("second expand: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second expand = %d, want 0", len(second))
	}

	got, err := reminders.ListByEvent(template.ID)
	if err != nil {
		t.Fatalf("list template reminders: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("template reminders after double expand = %d, want 1", len(got))
	}

	// A longer horizon only fills in the new tail.
	third, err := svc.ExpandOccurrences(template.ID, 7)
	if err != nil {
		t.Fatalf("third expand: %v", err)
	}
	if len(third) != 2 {
		t.Errorf("third expand = %d, want 2", len(third))
	}
}

func TestExpandOccurrencesRequiresTemplate(t *testing.T) {
	svc, _ := newFixture(t)

	plain, err := svc.CreateEvent(&model.CalendarEvent{
		FirmID: 1, Title: "one-off", StartDate: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.ExpandOccurrences(plain.ID, 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("non-recurring: err = %v, want ErrNotFound", err)
	}
	if _, err := svc.ExpandOccurrences(9999, 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id: err = %v, want ErrNotFound", err)
	}
}

func TestExpandOccurrencesStopsAtRecurrenceEnd(t *testing.T) {
	svc, _ := newFixture(t)

	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 14) // room for two more weekly steps
	template, err := svc.CreateEvent(&model.CalendarEvent{
		FirmID: 1, Title: "bounded", StartDate: start,
		RecurringPattern: "weekly:1", RecurringEndDate: &end,
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	created, err := svc.ExpandOccurrences(template.ID, 10)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(created) != 2 {
		t.Errorf("occurrences = %d, want 2 (cut off by recurrence end date)", len(created))
	}
}

func TestExpandOccurrencesPreservesDuration(t *testing.T) {
	svc, _ := newFixture(t)

	start := time.Date(2025, time.February, 4, 13, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	template, err := svc.CreateEvent(&model.CalendarEvent{
		FirmID: 1, Title: "mediation block", StartDate: start, EndDate: &end,
		RecurringPattern: "monthly:1",
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	created, err := svc.ExpandOccurrences(template.ID, 3)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	for _, child := range created {
		if child.EndDate == nil {
			t.Fatalf("occurrence %d missing end date", child.ID)
		}
		if got := child.EndDate.Sub(child.StartDate); got != 90*time.Minute {
			t.Errorf("occurrence %d duration = %v, want 90m", child.ID, got)
		}
	}
}

func TestUpdateEventRegeneratesReminders(t *testing.T) {
	svc, reminders := newFixture(t)

	event, err := svc.CreateEvent(&model.CalendarEvent{
		FirmID: 1, Title: "trial", StartDate: time.Now().Add(96 * time.Hour),
		AssignedTo: []int64{7}, ReminderEnabled: true, ReminderTimes: []int{60},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.UpdateEvent(event.ID, store.EventUpdate{ReminderTimes: &[]int{30, 120}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.ReminderTimes) != 2 {
		t.Fatalf("reminder times = %v, want [30 120]", updated.ReminderTimes)
	}

	got, err := reminders.ListByEvent(event.ID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("reminders = %d, want 2 regenerated", len(got))
	}
	offsets := map[int]bool{got[0].MinutesBefore: true, got[1].MinutesBefore: true}
	if !offsets[30] || !offsets[120] {
		t.Errorf("reminder offsets = %v, want 30 and 120", offsets)
	}
}

func TestUpdateEventDisablesReminders(t *testing.T) {
	svc, reminders := newFixture(t)

	event, err := svc.CreateEvent(&model.CalendarEvent{
		FirmID: 1, Title: "call", StartDate: time.Now().Add(24 * time.Hour),
		ReminderEnabled: true, ReminderTimes: []int{10},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateEvent(event.ID, store.EventUpdate{ReminderEnabled: ptr(false)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := reminders.ListByEvent(event.ID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("reminders after disable = %d, want 0", len(got))
	}
}

func TestUpdateEventUntouchedFieldsKeepReminders(t *testing.T) {
	svc, reminders := newFixture(t)

	event, err := svc.CreateEvent(&model.CalendarEvent{
		FirmID: 1, Title: "old title", StartDate: time.Now().Add(24 * time.Hour),
		ReminderEnabled: true, ReminderTimes: []int{45},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before, err := reminders.ListByEvent(event.ID)
	if err != nil {
		t.Fatalf("list before: %v", err)
	}

	if _, err := svc.UpdateEvent(event.ID, store.EventUpdate{Title: ptr("new title")}); err != nil {
		t.Fatalf("update: %v", err)
	}

	after, err := reminders.ListByEvent(event.ID)
	if err != nil {
		t.Fatalf("list after: %v", err)
	}
	if len(after) != len(before) || after[0].ID != before[0].ID {
		t.Errorf("reminders changed on title-only update: before %v, after %v", before, after)
	}
}

func TestUpdateEventNotFound(t *testing.T) {
	svc, _ := newFixture(t)
	if _, err := svc.UpdateEvent(12345, store.EventUpdate{Title: ptr("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteTemplateCascades(t *testing.T) {
	svc, reminders := newFixture(t)

	template, err := svc.CreateEvent(&model.CalendarEvent{
		FirmID: 1, Title: "recurring filing", StartDate: time.Date(2025, time.April, 7, 9, 0, 0, 0, time.UTC),
		RecurringPattern: "weekly:1", ReminderEnabled: true, ReminderTimes: []int{60},
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	children, err := svc.ExpandOccurrences(template.ID, 4)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	if err := svc.DeleteEvent(template.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.GetEvent(template.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("template still present: %v", err)
	}
	for _, child := range children {
		if _, err := svc.GetEvent(child.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("occurrence %d still present: %v", child.ID, err)
		}
		rs, err := reminders.ListByEvent(child.ID)
		if err != nil {
			t.Fatalf("list reminders: %v", err)
		}
		if len(rs) != 0 {
			t.Errorf("occurrence %d reminders = %d, want 0", child.ID, len(rs))
		}
	}
}

func TestGetEventNotFound(t *testing.T) {
	svc, _ := newFixture(t)
	if _, err := svc.GetEvent(777); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
