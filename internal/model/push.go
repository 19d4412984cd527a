package model

import "time"

type PushSubscription struct {
	ID        int64     `json:"id"`
	FirmID    int64     `json:"firm_id"`
	MemberID  int64     `json:"member_id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	CreatedAt time.Time `json:"created_at"`
}
