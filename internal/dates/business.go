package dates

import "time"

// IsBusinessDay reports whether t falls on a weekday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// AddBusinessDays advances t one calendar day at a time, counting only
// weekdays, until n business days have been added. Weekends are skipped
// entirely: they are neither counted nor landed on. n <= 0 returns t
// unchanged.
func AddBusinessDays(t time.Time, n int) time.Time {
	for added := 0; added < n; {
		t = t.AddDate(0, 0, 1)
		if IsBusinessDay(t) {
			added++
		}
	}
	return t
}

// BusinessDaysBetween counts weekdays in [start, end).
func BusinessDaysBetween(start, end time.Time) int {
	count := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			count++
		}
	}
	return count
}

// JurisdictionRule describes how a deadline's due date derives from a base
// date: a calendar-day offset applied first, then a business-day offset
// counted from the adjusted date.
type JurisdictionRule struct {
	CalendarDays int `json:"calendar_days"`
	BusinessDays int `json:"business_days"`
	// ExcludeHolidays is accepted but not yet consulted; court holiday
	// tables are per-jurisdiction data the engine does not carry.
	ExcludeHolidays bool `json:"exclude_holidays"`
}

// CalculateDeadline applies rule to base. Order matters: calendar days are
// added first, then business days are stepped from the calendar-adjusted
// date rather than from base.
func CalculateDeadline(base time.Time, rule JurisdictionRule) time.Time {
	due := base.AddDate(0, 0, rule.CalendarDays)
	if rule.BusinessDays > 0 {
		due = AddBusinessDays(due, rule.BusinessDays)
	}
	return due
}
