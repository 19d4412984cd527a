package dates

import (
	"fmt"
	"time"
)

// ApproachingWindow is how far ahead of now a deadline counts as approaching.
const ApproachingWindow = 7 * 24 * time.Hour

// PastDue is the sentinel TimeUntil returns for non-positive deltas.
const PastDue = "past due"

// FormatDate renders t for reminder bodies and console views.
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006 at 3:04 PM")
}

// TimeUntil renders the delta from now to t as its largest non-zero unit
// among days, hours and minutes, pluralized. Positive deltas under a minute
// round up to "1 minute".
func TimeUntil(t time.Time) string {
	return timeUntilFrom(time.Now(), t)
}

func timeUntilFrom(now, t time.Time) string {
	d := t.Sub(now)
	if d <= 0 {
		return PastDue
	}

	if days := int(d.Hours()) / 24; days > 0 {
		return plural(days, "day")
	}
	if hours := int(d.Hours()); hours > 0 {
		return plural(hours, "hour")
	}
	if minutes := int(d.Minutes()); minutes > 0 {
		return plural(minutes, "minute")
	}
	return plural(1, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// IsApproaching reports whether t falls within (now, now+ApproachingWindow].
func IsApproaching(t time.Time) bool {
	now := time.Now()
	return t.After(now) && !t.After(now.Add(ApproachingWindow))
}

// IsOverdue reports whether t is in the past.
func IsOverdue(t time.Time) bool {
	return t.Before(time.Now())
}
