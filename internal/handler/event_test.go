package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/docket-app/docket/internal/calendar"
	"github.com/docket-app/docket/internal/database"
	"github.com/docket-app/docket/internal/deadline"
	"github.com/docket-app/docket/internal/model"
	"github.com/docket-app/docket/internal/reminder"
	"github.com/docket-app/docket/internal/store"
	"github.com/docket-app/docket/internal/websocket"
)

type noopNotifier struct{}

func (noopNotifier) Notify(subject, htmlBody string, recipients []int64) error { return nil }

// newTestRouter wires the API handlers over an in-memory database.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.Default()
	events := store.NewEventStore(db)
	reminders := store.NewReminderStore(db)
	sched := reminder.NewScheduler(reminders, events, logger)
	sched.RegisterChannel(model.ChannelEmail, noopNotifier{})
	cal := calendar.NewService(events, sched, logger)
	tracker := deadline.NewTracker(store.NewDeadlineStore(db), cal, logger)
	hub := websocket.NewHub(logger)

	eventH := NewEventHandler(cal, hub, logger)
	deadlineH := NewDeadlineHandler(tracker, hub, logger)
	memberH := NewMemberHandler(store.NewMemberStore(db), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/events", eventH.Create)
	mux.HandleFunc("GET /api/events", eventH.List)
	mux.HandleFunc("GET /api/events/{id}", eventH.Get)
	mux.HandleFunc("PATCH /api/events/{id}", eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", eventH.Delete)
	mux.HandleFunc("POST /api/events/{id}/occurrences", eventH.Expand)
	mux.HandleFunc("POST /api/deadlines", deadlineH.Create)
	mux.HandleFunc("GET /api/deadlines", deadlineH.List)
	mux.HandleFunc("GET /api/deadlines/approaching", deadlineH.Approaching)
	mux.HandleFunc("GET /api/deadlines/overdue", deadlineH.Overdue)
	mux.HandleFunc("POST /api/deadlines/calculate", deadlineH.Calculate)
	mux.HandleFunc("GET /api/deadlines/{id}", deadlineH.Get)
	mux.HandleFunc("PATCH /api/deadlines/{id}", deadlineH.Update)
	mux.HandleFunc("DELETE /api/deadlines/{id}", deadlineH.Delete)
	mux.HandleFunc("POST /api/deadlines/{id}/complete", deadlineH.Complete)
	mux.HandleFunc("POST /api/members", memberH.Create)
	mux.HandleFunc("GET /api/members", memberH.List)
	return mux
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestEventCreateAndGet(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/events", map[string]any{
		"firm_id":    1,
		"created_by": 2,
		"title":      "Motion hearing",
		"start_date": "2025-09-10T14:00:00Z",
		"event_type": "hearing",
		"priority":   "high",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	created := decode[model.CalendarEvent](t, rec)
	if created.ID == 0 || created.Status != model.EventStatusPending {
		t.Fatalf("created = %+v, want id and pending status", created)
	}

	rec = doJSON(t, router, "GET", "/api/events/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decode[model.CalendarEvent](t, rec)
	if got.Title != "Motion hearing" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestEventCreateValidation(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing firm", map[string]any{"title": "x", "start_date": "2025-09-10"}},
		{"missing title", map[string]any{"firm_id": 1, "start_date": "2025-09-10"}},
		{"bad date", map[string]any{"firm_id": 1, "title": "x", "start_date": "tomorrow"}},
		{"bad pattern", map[string]any{"firm_id": 1, "title": "x", "start_date": "2025-09-10", "recurring_pattern": "hourly:1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := doJSON(t, router, "POST", "/api/events", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestEventListFilters(t *testing.T) {
	router := newTestRouter(t)

	for _, e := range []map[string]any{
		{"firm_id": 1, "title": "hearing A", "start_date": "2025-09-01T10:00:00Z", "event_type": "hearing"},
		{"firm_id": 1, "title": "deposition B", "start_date": "2025-09-15T10:00:00Z", "event_type": "deposition"},
		{"firm_id": 2, "title": "other firm", "start_date": "2025-09-01T10:00:00Z", "event_type": "hearing"},
	} {
		if rec := doJSON(t, router, "POST", "/api/events", e); rec.Code != http.StatusCreated {
			t.Fatalf("seed: %d %s", rec.Code, rec.Body)
		}
	}

	rec := doJSON(t, router, "GET", "/api/events?firm_id=1&event_type=hearing", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	events := decode[[]model.CalendarEvent](t, rec)
	if len(events) != 1 || events[0].Title != "hearing A" {
		t.Errorf("filtered events = %+v, want just hearing A", events)
	}

	if rec := doJSON(t, router, "GET", "/api/events", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing firm_id: status = %d, want 400", rec.Code)
	}
}

func TestEventExpandEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/events", map[string]any{
		"firm_id":           1,
		"title":             "weekly review",
		"start_date":        "2025-09-01T09:00:00Z",
		"recurring_pattern": "weekly:1",
		"reminder_enabled":  true,
		"reminder_times":    []int{60},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	template := decode[model.CalendarEvent](t, rec)

	rec = doJSON(t, router, "POST", "/api/events/1/occurrences", map[string]any{"count": 4})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expand status = %d, body %s", rec.Code, rec.Body)
	}
	created := decode[[]model.CalendarEvent](t, rec)
	if len(created) != 3 {
		t.Fatalf("expanded = %d, want 3 new occurrences", len(created))
	}
	for _, c := range created {
		if c.ParentEventID == nil || *c.ParentEventID != template.ID {
			t.Errorf("occurrence parent = %v", c.ParentEventID)
		}
	}

	// Expanding a non-recurring event 404s.
	rec = doJSON(t, router, "POST", "/api/events", map[string]any{
		"firm_id": 1, "title": "one-off", "start_date": "2025-09-02T09:00:00Z",
	})
	oneOff := decode[model.CalendarEvent](t, rec)
	if rec := doJSON(t, router, "POST", "/api/events/"+itoa(oneOff.ID)+"/occurrences", map[string]any{"count": 2}); rec.Code != http.StatusNotFound {
		t.Errorf("expand one-off: status = %d, want 404", rec.Code)
	}
}

func TestEventUpdateAndDelete(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/events", map[string]any{
		"firm_id": 1, "title": "old", "start_date": "2025-09-10T10:00:00Z",
	})
	event := decode[model.CalendarEvent](t, rec)

	rec = doJSON(t, router, "PATCH", "/api/events/"+itoa(event.ID), map[string]any{
		"title": "new title", "status": model.EventStatusRescheduled,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body)
	}
	updated := decode[model.CalendarEvent](t, rec)
	if updated.Title != "new title" || updated.Status != model.EventStatusRescheduled {
		t.Errorf("updated = %+v", updated)
	}

	if rec := doJSON(t, router, "DELETE", "/api/events/"+itoa(event.ID), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := doJSON(t, router, "GET", "/api/events/"+itoa(event.ID), nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestMemberEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/members", map[string]any{
		"firm_id": 1, "name": "Dana", "email": "dana@firm.test", "role": "paralegal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create member: %d %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, router, "GET", "/api/members?firm_id=1", nil)
	members := decode[[]model.FirmMember](t, rec)
	if len(members) != 1 || members[0].Name != "Dana" {
		t.Errorf("members = %+v", members)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
