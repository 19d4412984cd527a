package model

import "time"

// FirmMember is a user of a firm: an attorney, paralegal, or staff member.
// Reminders resolve recipient ids against this directory.
type FirmMember struct {
	ID        int64     `json:"id"`
	FirmID    int64     `json:"firm_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
