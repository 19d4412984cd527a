package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/docket-app/docket/internal/calendar"
	"github.com/docket-app/docket/internal/dates"
	"github.com/docket-app/docket/internal/model"
	"github.com/docket-app/docket/internal/store"
	"github.com/docket-app/docket/internal/websocket"
)

type EventHandler struct {
	calendar *calendar.Service
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewEventHandler(cal *calendar.Service, hub *websocket.Hub, logger *slog.Logger) *EventHandler {
	return &EventHandler{calendar: cal, hub: hub, logger: logger}
}

type eventRequest struct {
	FirmID             int64   `json:"firm_id"`
	CreatedBy          int64   `json:"created_by"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	Location           string  `json:"location"`
	StartDate          string  `json:"start_date"`
	EndDate            *string `json:"end_date"`
	AllDay             bool    `json:"all_day"`
	EventType          string  `json:"event_type"`
	Priority           string  `json:"priority"`
	MatterID           *int64  `json:"matter_id"`
	ClientID           *int64  `json:"client_id"`
	AssignedTo         []int64 `json:"assigned_to"`
	RecurringPattern   string  `json:"recurring_pattern"`
	RecurringEndDate   *string `json:"recurring_end_date"`
	ReminderEnabled    bool    `json:"reminder_enabled"`
	ReminderTimes      []int   `json:"reminder_times"`
	ShowInClientPortal bool    `json:"show_in_client_portal"`
}

// Create handles POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.FirmID <= 0 {
		writeError(w, http.StatusBadRequest, "firm_id is required")
		return
	}

	start, err := parseFlexibleTime(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be RFC3339 or YYYY-MM-DD format")
		return
	}
	end, err := parseOptionalTime(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be RFC3339 or YYYY-MM-DD format")
		return
	}
	recurringEnd, err := parseOptionalTime(req.RecurringEndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "recurring_end_date must be RFC3339 or YYYY-MM-DD format")
		return
	}

	event, err := h.calendar.CreateEvent(&model.CalendarEvent{
		FirmID:             req.FirmID,
		CreatedBy:          req.CreatedBy,
		Title:              req.Title,
		Description:        req.Description,
		Location:           req.Location,
		StartDate:          start,
		EndDate:            end,
		AllDay:             req.AllDay,
		EventType:          req.EventType,
		Priority:           req.Priority,
		MatterID:           req.MatterID,
		ClientID:           req.ClientID,
		AssignedTo:         req.AssignedTo,
		RecurringPattern:   req.RecurringPattern,
		RecurringEndDate:   recurringEnd,
		ReminderEnabled:    req.ReminderEnabled,
		ReminderTimes:      req.ReminderTimes,
		ShowInClientPortal: req.ShowInClientPortal,
	})
	if err != nil {
		h.writeServiceError(w, err, "create event")
		return
	}

	h.hub.Broadcast(event.FirmID, websocket.NewMessage("calendar_event", "created", event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

// List handles GET /api/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	firmID, ok := firmIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "firm_id is required")
		return
	}

	var f store.EventFilter
	q := r.URL.Query()
	if s := q.Get("start"); s != "" {
		t, err := parseFlexibleTime(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC3339 or YYYY-MM-DD format")
			return
		}
		f.StartFrom = &t
	}
	if s := q.Get("end"); s != "" {
		t, err := parseFlexibleTime(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC3339 or YYYY-MM-DD format")
			return
		}
		f.StartTo = &t
	}
	if s := q.Get("matter_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid matter_id")
			return
		}
		f.MatterID = &id
	}
	if s := q.Get("client_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid client_id")
			return
		}
		f.ClientID = &id
	}
	if s := q.Get("assigned_to"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assigned_to")
			return
		}
		f.AssignedTo = &id
	}
	f.EventType = q.Get("event_type")

	events, err := h.calendar.ListEvents(firmID, f)
	if err != nil {
		h.logger.Error("list events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Get handles GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	event, err := h.calendar.GetEvent(id)
	if err != nil {
		h.writeServiceError(w, err, "get event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

type eventUpdateRequest struct {
	Title              *string  `json:"title"`
	Description        *string  `json:"description"`
	Location           *string  `json:"location"`
	StartDate          *string  `json:"start_date"`
	EndDate            *string  `json:"end_date"`
	AllDay             *bool    `json:"all_day"`
	EventType          *string  `json:"event_type"`
	Priority           *string  `json:"priority"`
	Status             *string  `json:"status"`
	MatterID           *int64   `json:"matter_id"`
	ClientID           *int64   `json:"client_id"`
	AssignedTo         *[]int64 `json:"assigned_to"`
	RecurringEndDate   *string  `json:"recurring_end_date"`
	ReminderEnabled    *bool    `json:"reminder_enabled"`
	ReminderTimes      *[]int   `json:"reminder_times"`
	ShowInClientPortal *bool    `json:"show_in_client_portal"`
}

// Update handles PATCH /api/events/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req eventUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	u := store.EventUpdate{
		Title:              req.Title,
		Description:        req.Description,
		Location:           req.Location,
		AllDay:             req.AllDay,
		EventType:          req.EventType,
		Priority:           req.Priority,
		Status:             req.Status,
		MatterID:           req.MatterID,
		ClientID:           req.ClientID,
		AssignedTo:         req.AssignedTo,
		ReminderEnabled:    req.ReminderEnabled,
		ReminderTimes:      req.ReminderTimes,
		ShowInClientPortal: req.ShowInClientPortal,
	}
	if u.StartDate, err = parseOptionalTime(req.StartDate); err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be RFC3339 or YYYY-MM-DD format")
		return
	}
	if u.EndDate, err = parseOptionalTime(req.EndDate); err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be RFC3339 or YYYY-MM-DD format")
		return
	}
	if u.RecurringEndDate, err = parseOptionalTime(req.RecurringEndDate); err != nil {
		writeError(w, http.StatusBadRequest, "recurring_end_date must be RFC3339 or YYYY-MM-DD format")
		return
	}

	event, err := h.calendar.UpdateEvent(id, u)
	if err != nil {
		h.writeServiceError(w, err, "update event")
		return
	}

	h.hub.Broadcast(event.FirmID, websocket.NewMessage("calendar_event", "updated", event.ID, nil))
	writeJSON(w, http.StatusOK, event)
}

// Delete handles DELETE /api/events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	event, err := h.calendar.GetEvent(id)
	if err != nil {
		h.writeServiceError(w, err, "get event")
		return
	}
	if err := h.calendar.DeleteEvent(id); err != nil {
		h.writeServiceError(w, err, "delete event")
		return
	}

	h.hub.Broadcast(event.FirmID, websocket.NewMessage("calendar_event", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type expandRequest struct {
	Count int `json:"count"`
}

// Expand handles POST /api/events/{id}/occurrences
func (h *EventHandler) Expand(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req expandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	created, err := h.calendar.ExpandOccurrences(id, req.Count)
	if err != nil {
		h.writeServiceError(w, err, "expand occurrences")
		return
	}
	if created == nil {
		created = []model.CalendarEvent{}
	}

	if len(created) > 0 {
		h.hub.Broadcast(created[0].FirmID, websocket.NewMessage("calendar_event", "expanded", id,
			map[string]any{"created": len(created)}))
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *EventHandler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, calendar.ErrValidation), errors.Is(err, dates.ErrInvalidPattern):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
