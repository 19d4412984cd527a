package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/docket-app/docket/internal/dates"
	"github.com/docket-app/docket/internal/model"
)

type DeadlineStore struct {
	db *sql.DB
}

func NewDeadlineStore(db *sql.DB) *DeadlineStore {
	return &DeadlineStore{db: db}
}

const deadlineCols = `id, firm_id, created_by, title, description, due_date, calculated_from_date,
	calculation_method, deadline_type, jurisdiction, priority, status, matter_id, assigned_to,
	related_event_id, completed_at, completed_by, created_at, updated_at`

func scanDeadline(scanner interface{ Scan(...any) error }) (*model.Deadline, error) {
	var d model.Deadline
	var calcFrom, completedAt sql.NullTime
	var matterID, relatedEventID, completedBy sql.NullInt64
	var assigned string

	err := scanner.Scan(
		&d.ID, &d.FirmID, &d.CreatedBy, &d.Title, &d.Description, &d.DueDate, &calcFrom,
		&d.CalculationMethod, &d.DeadlineType, &d.Jurisdiction, &d.Priority, &d.Status,
		&matterID, &assigned, &relatedEventID, &completedAt, &completedBy,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.CalculatedFromDate = timePtr(calcFrom)
	d.CompletedAt = timePtr(completedAt)
	d.MatterID = int64Ptr(matterID)
	d.RelatedEventID = int64Ptr(relatedEventID)
	d.CompletedBy = int64Ptr(completedBy)
	d.AssignedTo = unmarshalIDs(assigned)

	return &d, nil
}

func (s *DeadlineStore) Create(d *model.Deadline) (*model.Deadline, error) {
	status := d.Status
	if status == "" {
		status = model.DeadlineStatusPending
	}

	result, err := s.db.Exec(
		`INSERT INTO legal_deadlines (firm_id, created_by, title, description, due_date,
		 calculated_from_date, calculation_method, deadline_type, jurisdiction, priority, status,
		 matter_id, assigned_to, related_event_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FirmID, d.CreatedBy, d.Title, d.Description, d.DueDate.UTC(),
		nullTime(d.CalculatedFromDate), d.CalculationMethod, d.DeadlineType, d.Jurisdiction,
		d.Priority, status, nullInt64(d.MatterID), marshalIDs(d.AssignedTo),
		nullInt64(d.RelatedEventID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert deadline: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *DeadlineStore) GetByID(id int64) (*model.Deadline, error) {
	row := s.db.QueryRow(`SELECT `+deadlineCols+` FROM legal_deadlines WHERE id = ?`, id)
	d, err := scanDeadline(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query deadline: %w", err)
	}
	return d, nil
}

// DeadlineFilter narrows List results; fields are AND-combined.
type DeadlineFilter struct {
	MatterID     *int64
	Status       string
	DueFrom      *time.Time
	DueTo        *time.Time
	Jurisdiction string
	DeadlineType string
	AssignedTo   *int64
}

func (s *DeadlineStore) List(firmID int64, f DeadlineFilter) ([]model.Deadline, error) {
	query := `SELECT ` + deadlineCols + ` FROM legal_deadlines WHERE firm_id = ?`
	args := []any{firmID}

	if f.MatterID != nil {
		query += ` AND matter_id = ?`
		args = append(args, *f.MatterID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.DueFrom != nil {
		query += ` AND due_date >= ?`
		args = append(args, f.DueFrom.UTC())
	}
	if f.DueTo != nil {
		query += ` AND due_date <= ?`
		args = append(args, f.DueTo.UTC())
	}
	if f.Jurisdiction != "" {
		query += ` AND jurisdiction = ?`
		args = append(args, f.Jurisdiction)
	}
	if f.DeadlineType != "" {
		query += ` AND deadline_type = ?`
		args = append(args, f.DeadlineType)
	}
	query += ` ORDER BY due_date ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deadlines: %w", err)
	}
	defer rows.Close()

	var deadlines []model.Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deadline: %w", err)
		}
		if f.AssignedTo != nil && !containsID(d.AssignedTo, *f.AssignedTo) {
			continue
		}
		deadlines = append(deadlines, *d)
	}
	return deadlines, rows.Err()
}

// ListApproaching returns open deadlines due within the approaching window,
// ordered soonest first.
func (s *DeadlineStore) ListApproaching(firmID int64, now time.Time) ([]model.Deadline, error) {
	return s.listOpenDue(firmID,
		`AND due_date >= ? AND due_date <= ?`,
		now.UTC(), now.Add(dates.ApproachingWindow).UTC())
}

// ListOverdue returns open deadlines whose due date has passed.
func (s *DeadlineStore) ListOverdue(firmID int64, now time.Time) ([]model.Deadline, error) {
	return s.listOpenDue(firmID, `AND due_date <= ?`, now.UTC())
}

func (s *DeadlineStore) listOpenDue(firmID int64, dueClause string, dueArgs ...any) ([]model.Deadline, error) {
	query := `SELECT ` + deadlineCols + ` FROM legal_deadlines
		 WHERE firm_id = ? AND status IN ('pending', 'extended') ` + dueClause + `
		 ORDER BY due_date ASC`
	args := append([]any{firmID}, dueArgs...)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query open deadlines: %w", err)
	}
	defer rows.Close()

	var deadlines []model.Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deadline: %w", err)
		}
		deadlines = append(deadlines, *d)
	}
	return deadlines, rows.Err()
}

// DeadlineUpdate is a partial update; nil fields are left untouched.
type DeadlineUpdate struct {
	Title              *string
	Description        *string
	DueDate            *time.Time
	CalculatedFromDate *time.Time
	CalculationMethod  *string
	DeadlineType       *string
	Jurisdiction       *string
	Priority           *string
	Status             *string
	MatterID           *int64
	AssignedTo         *[]int64
	RelatedEventID     *int64
}

func (s *DeadlineStore) Update(id int64, u DeadlineUpdate) (*model.Deadline, error) {
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
	if u.DueDate != nil {
		set("due_date", u.DueDate.UTC())
	}
	if u.CalculatedFromDate != nil {
		set("calculated_from_date", u.CalculatedFromDate.UTC())
	}
	if u.CalculationMethod != nil {
		set("calculation_method", *u.CalculationMethod)
	}
	if u.DeadlineType != nil {
		set("deadline_type", *u.DeadlineType)
	}
	if u.Jurisdiction != nil {
		set("jurisdiction", *u.Jurisdiction)
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
	if u.AssignedTo != nil {
		set("assigned_to", marshalIDs(*u.AssignedTo))
	}
	if u.RelatedEventID != nil {
		set("related_event_id", *u.RelatedEventID)
	}

	if len(sets) == 0 {
		return s.GetByID(id)
	}
	set("updated_at", time.Now().UTC())
	args = append(args, id)

	query := `UPDATE legal_deadlines SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("update deadline: %w", err)
	}

	return s.GetByID(id)
}

// Complete marks a deadline completed at most once. It returns false if the
// deadline was already completed.
func (s *DeadlineStore) Complete(id, userID int64, at time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE legal_deadlines
		 SET status = 'completed', completed_at = ?, completed_by = ?, updated_at = ?
		 WHERE id = ? AND completed_at IS NULL`,
		at.UTC(), userID, time.Now().UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("complete deadline: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *DeadlineStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM legal_deadlines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete deadline: %w", err)
	}
	return nil
}
