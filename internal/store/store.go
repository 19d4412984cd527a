package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Ordered id sets and minute offsets are stored as JSON arrays in TEXT
// columns. Empty sets round-trip as "[]".

func marshalIDs(ids []int64) string {
	if len(ids) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func unmarshalIDs(s string) []int64 {
	if s == "" || s == "[]" {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil
	}
	return ids
}

func marshalMinutes(mins []int) string {
	if len(mins) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(mins)
	return string(b)
}

func unmarshalMinutes(s string) []int {
	if s == "" || s == "[]" {
		return nil
	}
	var mins []int
	if err := json.Unmarshal([]byte(s), &mins); err != nil {
		return nil
	}
	return mins
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}
