package dates

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPattern is returned when a pattern's type is not a supported
// frequency.
var ErrInvalidPattern = errors.New("invalid recurring pattern")

// Supported pattern types.
const (
	Daily     = "daily"
	Weekly    = "weekly"
	Biweekly  = "biweekly"
	Monthly   = "monthly"
	Quarterly = "quarterly"
	Yearly    = "yearly"
)

// Pattern is the compact "type:interval" recurrence encoding stored on a
// template event, e.g. "weekly:2".
type Pattern struct {
	Type     string `json:"type"`
	Interval int    `json:"interval"`
}

// ParsePattern splits a "type:interval" string. A missing or non-positive
// interval defaults to 1. Unknown types are preserved as-is so the caller
// can reject them when stepping.
func ParsePattern(s string) Pattern {
	typ, rest, found := strings.Cut(s, ":")
	p := Pattern{Type: typ, Interval: 1}
	if found {
		if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil && n > 0 {
			p.Interval = n
		}
	}
	return p
}

// KnownType reports whether t is a supported pattern type.
func KnownType(t string) bool {
	switch t {
	case Daily, Weekly, Biweekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// String serializes the pattern back to its "type:interval" form.
func (p Pattern) String() string {
	return fmt.Sprintf("%s:%d", p.Type, p.Interval)
}

// Next returns the occurrence following base. Weekly and biweekly steps are
// fixed day counts; monthly, quarterly and yearly use calendar arithmetic
// with the standard library's day-of-month carry-over.
func Next(base time.Time, p Pattern) (time.Time, error) {
	switch p.Type {
	case Daily:
		return base.AddDate(0, 0, p.Interval), nil
	case Weekly:
		return base.AddDate(0, 0, 7*p.Interval), nil
	case Biweekly:
		return base.AddDate(0, 0, 14*p.Interval), nil
	case Monthly:
		return base.AddDate(0, p.Interval, 0), nil
	case Quarterly:
		return base.AddDate(0, 3*p.Interval, 0), nil
	case Yearly:
		return base.AddDate(p.Interval, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown type %q", ErrInvalidPattern, p.Type)
}

// Occurrences lazily walks up to count occurrence dates beginning with
// start, stepping via Next. When until is non-nil the sequence ends the
// first time a candidate falls past it, so it may be shorter than count.
type Occurrences struct {
	start   time.Time
	pattern Pattern
	count   int
	until   *time.Time

	current time.Time
	emitted int
	started bool
	err     error
}

// NewOccurrences creates an iterator positioned before the first date.
func NewOccurrences(start time.Time, pattern Pattern, count int, until *time.Time) *Occurrences {
	return &Occurrences{start: start, pattern: pattern, count: count, until: until}
}

// Next returns the next date in the sequence; ok is false once the sequence
// is exhausted. After a false return, Err distinguishes an unknown pattern
// type from ordinary exhaustion.
func (o *Occurrences) Next() (t time.Time, ok bool) {
	if o.err != nil || o.emitted >= o.count {
		return time.Time{}, false
	}

	if !o.started {
		o.started = true
		o.current = o.start
	} else {
		next, err := Next(o.current, o.pattern)
		if err != nil {
			o.err = err
			return time.Time{}, false
		}
		o.current = next
	}

	if o.until != nil && o.current.After(*o.until) {
		return time.Time{}, false
	}

	o.emitted++
	return o.current, true
}

// Err reports whether iteration stopped because the pattern type is unknown.
func (o *Occurrences) Err() error { return o.err }

// Reset rewinds the iterator to the beginning of the sequence.
func (o *Occurrences) Reset() {
	o.started = false
	o.emitted = 0
	o.err = nil
	o.current = time.Time{}
}

// GenerateOccurrences collects the full sequence the iterator would yield.
func GenerateOccurrences(start time.Time, pattern Pattern, count int, until *time.Time) ([]time.Time, error) {
	iter := NewOccurrences(start, pattern, count, until)
	var out []time.Time
	for {
		t, ok := iter.Next()
		if !ok {
			break
		}
		out = append(out, t)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
