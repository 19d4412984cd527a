package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/docket-app/docket/internal/dates"
	"github.com/docket-app/docket/internal/deadline"
	"github.com/docket-app/docket/internal/model"
	"github.com/docket-app/docket/internal/store"
	"github.com/docket-app/docket/internal/websocket"
)

type DeadlineHandler struct {
	tracker *deadline.Tracker
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewDeadlineHandler(tracker *deadline.Tracker, hub *websocket.Hub, logger *slog.Logger) *DeadlineHandler {
	return &DeadlineHandler{tracker: tracker, hub: hub, logger: logger}
}

type deadlineRequest struct {
	FirmID             int64   `json:"firm_id"`
	CreatedBy          int64   `json:"created_by"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	DueDate            string  `json:"due_date"`
	CalculatedFromDate *string `json:"calculated_from_date"`
	CalculationMethod  string  `json:"calculation_method"`
	DeadlineType       string  `json:"deadline_type"`
	Jurisdiction       string  `json:"jurisdiction"`
	Priority           string  `json:"priority"`
	MatterID           *int64  `json:"matter_id"`
	AssignedTo         []int64 `json:"assigned_to"`
	RelatedEventID     *int64  `json:"related_event_id"`
	ReminderEnabled    bool    `json:"reminder_enabled"`
	ReminderTimes      []int   `json:"reminder_times"`
	ShowInClientPortal bool    `json:"show_in_client_portal"`
}

// Create handles POST /api/deadlines
func (h *DeadlineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req deadlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.FirmID <= 0 {
		writeError(w, http.StatusBadRequest, "firm_id is required")
		return
	}

	due, err := parseFlexibleTime(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "due_date must be RFC3339 or YYYY-MM-DD format")
		return
	}
	calcFrom, err := parseOptionalTime(req.CalculatedFromDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "calculated_from_date must be RFC3339 or YYYY-MM-DD format")
		return
	}

	created, err := h.tracker.CreateDeadline(&deadline.CreateInput{
		Deadline: model.Deadline{
			FirmID:             req.FirmID,
			CreatedBy:          req.CreatedBy,
			Title:              req.Title,
			Description:        req.Description,
			DueDate:            due,
			CalculatedFromDate: calcFrom,
			CalculationMethod:  req.CalculationMethod,
			DeadlineType:       req.DeadlineType,
			Jurisdiction:       req.Jurisdiction,
			Priority:           req.Priority,
			MatterID:           req.MatterID,
			AssignedTo:         req.AssignedTo,
			RelatedEventID:     req.RelatedEventID,
		},
		ReminderEnabled:    req.ReminderEnabled,
		ReminderTimes:      req.ReminderTimes,
		ShowInClientPortal: req.ShowInClientPortal,
	})
	if err != nil {
		h.writeServiceError(w, err, "create deadline")
		return
	}

	h.hub.Broadcast(created.FirmID, websocket.NewMessage("deadline", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /api/deadlines
func (h *DeadlineHandler) List(w http.ResponseWriter, r *http.Request) {
	firmID, ok := firmIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "firm_id is required")
		return
	}

	var f store.DeadlineFilter
	q := r.URL.Query()
	f.Status = q.Get("status")
	f.Jurisdiction = q.Get("jurisdiction")
	f.DeadlineType = q.Get("deadline_type")
	if s := q.Get("matter_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid matter_id")
			return
		}
		f.MatterID = &id
	}
	if s := q.Get("assigned_to"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assigned_to")
			return
		}
		f.AssignedTo = &id
	}
	if s := q.Get("due_from"); s != "" {
		t, err := parseFlexibleTime(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "due_from must be RFC3339 or YYYY-MM-DD format")
			return
		}
		f.DueFrom = &t
	}
	if s := q.Get("due_to"); s != "" {
		t, err := parseFlexibleTime(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "due_to must be RFC3339 or YYYY-MM-DD format")
			return
		}
		f.DueTo = &t
	}

	deadlines, err := h.tracker.GetDeadlines(firmID, f)
	if err != nil {
		h.logger.Error("list deadlines", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list deadlines")
		return
	}
	if deadlines == nil {
		deadlines = []model.Deadline{}
	}
	writeJSON(w, http.StatusOK, deadlines)
}

// Approaching handles GET /api/deadlines/approaching
func (h *DeadlineHandler) Approaching(w http.ResponseWriter, r *http.Request) {
	h.listOpen(w, r, h.tracker.GetApproaching)
}

// Overdue handles GET /api/deadlines/overdue
func (h *DeadlineHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	h.listOpen(w, r, h.tracker.GetOverdue)
}

func (h *DeadlineHandler) listOpen(w http.ResponseWriter, r *http.Request, fetch func(int64) ([]model.Deadline, error)) {
	firmID, ok := firmIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "firm_id is required")
		return
	}

	deadlines, err := fetch(firmID)
	if err != nil {
		h.logger.Error("list open deadlines", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list deadlines")
		return
	}
	if deadlines == nil {
		deadlines = []model.Deadline{}
	}
	writeJSON(w, http.StatusOK, deadlines)
}

// Get handles GET /api/deadlines/{id}
func (h *DeadlineHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	d, err := h.tracker.GetDeadline(id)
	if err != nil {
		h.writeServiceError(w, err, "get deadline")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type deadlineUpdateRequest struct {
	Title              *string  `json:"title"`
	Description        *string  `json:"description"`
	DueDate            *string  `json:"due_date"`
	CalculatedFromDate *string  `json:"calculated_from_date"`
	CalculationMethod  *string  `json:"calculation_method"`
	DeadlineType       *string  `json:"deadline_type"`
	Jurisdiction       *string  `json:"jurisdiction"`
	Priority           *string  `json:"priority"`
	Status             *string  `json:"status"`
	MatterID           *int64   `json:"matter_id"`
	AssignedTo         *[]int64 `json:"assigned_to"`
}

// Update handles PATCH /api/deadlines/{id}
func (h *DeadlineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req deadlineUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	u := store.DeadlineUpdate{
		Title:             req.Title,
		Description:       req.Description,
		CalculationMethod: req.CalculationMethod,
		DeadlineType:      req.DeadlineType,
		Jurisdiction:      req.Jurisdiction,
		Priority:          req.Priority,
		Status:            req.Status,
		MatterID:          req.MatterID,
		AssignedTo:        req.AssignedTo,
	}
	if u.DueDate, err = parseOptionalTime(req.DueDate); err != nil {
		writeError(w, http.StatusBadRequest, "due_date must be RFC3339 or YYYY-MM-DD format")
		return
	}
	if u.CalculatedFromDate, err = parseOptionalTime(req.CalculatedFromDate); err != nil {
		writeError(w, http.StatusBadRequest, "calculated_from_date must be RFC3339 or YYYY-MM-DD format")
		return
	}

	updated, err := h.tracker.UpdateDeadline(id, u)
	if err != nil {
		h.writeServiceError(w, err, "update deadline")
		return
	}

	h.hub.Broadcast(updated.FirmID, websocket.NewMessage("deadline", "updated", updated.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

type completeRequest struct {
	CompletedBy int64 `json:"completed_by"`
}

// Complete handles POST /api/deadlines/{id}/complete
func (h *DeadlineHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.CompletedBy <= 0 {
		writeError(w, http.StatusBadRequest, "completed_by is required")
		return
	}

	completed, err := h.tracker.CompleteDeadline(id, req.CompletedBy)
	if err != nil {
		h.writeServiceError(w, err, "complete deadline")
		return
	}

	h.hub.Broadcast(completed.FirmID, websocket.NewMessage("deadline", "completed", completed.ID, nil))
	writeJSON(w, http.StatusOK, completed)
}

// Delete handles DELETE /api/deadlines/{id}
func (h *DeadlineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	d, err := h.tracker.GetDeadline(id)
	if err != nil {
		h.writeServiceError(w, err, "get deadline")
		return
	}
	if err := h.tracker.DeleteDeadline(id); err != nil {
		h.writeServiceError(w, err, "delete deadline")
		return
	}

	h.hub.Broadcast(d.FirmID, websocket.NewMessage("deadline", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type calculateRequest struct {
	FromDate        string `json:"from_date"`
	CalendarDays    int    `json:"calendar_days"`
	BusinessDays    int    `json:"business_days"`
	ExcludeHolidays bool   `json:"exclude_holidays"`
}

// Calculate handles POST /api/deadlines/calculate
func (h *DeadlineHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	from, err := parseFlexibleTime(req.FromDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from_date must be RFC3339 or YYYY-MM-DD format")
		return
	}

	due := h.tracker.CalculateDueDate(from, dates.JurisdictionRule{
		CalendarDays:    req.CalendarDays,
		BusinessDays:    req.BusinessDays,
		ExcludeHolidays: req.ExcludeHolidays,
	})
	writeJSON(w, http.StatusOK, map[string]string{"due_date": due.Format("2006-01-02")})
}

func (h *DeadlineHandler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, deadline.ErrNotFound):
		writeError(w, http.StatusNotFound, "deadline not found")
	case errors.Is(err, deadline.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
