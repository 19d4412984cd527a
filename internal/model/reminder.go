package model

import "time"

// Channel identifies a reminder delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "in_app"
	// ChannelAll fans out to every concrete channel.
	ChannelAll Channel = "all"
)

// Reminder status constants
const (
	ReminderStatusPending = "pending"
	ReminderStatusSent    = "sent"
)

// Reminder is a scheduled, at-most-once notification tied to one event and one
// minutes-before offset. SentAt is non-nil iff Status is "sent".
type Reminder struct {
	ID            int64      `json:"id"`
	FirmID        int64      `json:"firm_id"`
	EventID       int64      `json:"event_id"`
	Channel       Channel    `json:"channel"`
	MinutesBefore int        `json:"minutes_before"`
	Recipients    []int64    `json:"recipients"`
	Status        string     `json:"status"`
	SentAt        *time.Time `json:"sent_at"`
	CreatedAt     time.Time  `json:"created_at"`
}
