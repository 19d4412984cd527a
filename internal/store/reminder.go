package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/docket-app/docket/internal/model"
)

type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

const reminderCols = `id, firm_id, event_id, channel, minutes_before, recipients, status, sent_at, created_at`

func scanReminder(scanner interface{ Scan(...any) error }) (*model.Reminder, error) {
	var r model.Reminder
	var sentAt sql.NullTime
	var recipients string

	err := scanner.Scan(&r.ID, &r.FirmID, &r.EventID, &r.Channel, &r.MinutesBefore,
		&recipients, &r.Status, &sentAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.SentAt = timePtr(sentAt)
	r.Recipients = unmarshalIDs(recipients)
	return &r, nil
}

func (s *ReminderStore) Create(r *model.Reminder) (*model.Reminder, error) {
	channel := r.Channel
	if channel == "" {
		channel = model.ChannelEmail
	}
	status := r.Status
	if status == "" {
		status = model.ReminderStatusPending
	}

	result, err := s.db.Exec(
		`INSERT INTO calendar_reminders (firm_id, event_id, channel, minutes_before, recipients, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.FirmID, r.EventID, string(channel), r.MinutesBefore, marshalIDs(r.Recipients), status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *ReminderStore) GetByID(id int64) (*model.Reminder, error) {
	row := s.db.QueryRow(`SELECT `+reminderCols+` FROM calendar_reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query reminder: %w", err)
	}
	return r, nil
}

func (s *ReminderStore) ListByEvent(eventID int64) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT `+reminderCols+` FROM calendar_reminders WHERE event_id = ? ORDER BY minutes_before ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("query reminders by event: %w", err)
	}
	defer rows.Close()
	return collectReminders(rows)
}

// ListPending returns every reminder that has not been dispatched yet. The
// sent_at IS NULL guard is what keeps already-dispatched reminders out of
// subsequent sweeps.
func (s *ReminderStore) ListPending() ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT ` + reminderCols + ` FROM calendar_reminders
		 WHERE status = 'pending' AND sent_at IS NULL ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending reminders: %w", err)
	}
	defer rows.Close()
	return collectReminders(rows)
}

func collectReminders(rows *sql.Rows) ([]model.Reminder, error) {
	var reminders []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}

// MarkSent transitions a reminder to sent at most once. It returns false if
// another sweep already claimed the reminder.
func (s *ReminderStore) MarkSent(id int64, at time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE calendar_reminders SET status = 'sent', sent_at = ?
		 WHERE id = ? AND status = 'pending' AND sent_at IS NULL`,
		at.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *ReminderStore) DeleteByEvent(eventID int64) error {
	_, err := s.db.Exec(`DELETE FROM calendar_reminders WHERE event_id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("delete reminders by event: %w", err)
	}
	return nil
}
