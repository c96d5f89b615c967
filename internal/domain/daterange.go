package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive span of civil dates. Both ends are kept as UTC
// midnight so that day arithmetic never crosses a DST boundary.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDate returns the civil date as UTC midnight.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the calendar date t falls on in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// NewDateRange normalizes both ends to civil dates and rejects inverted ranges.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: civil(start), End: civil(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, &ValidationError{Field: "end_date", Reason: "end date must not be before start date"}
	}
	return r, nil
}

// MustDateRange is NewDateRange for literals known to be valid.
func MustDateRange(start, end time.Time) DateRange {
	r, err := NewDateRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// Days is the inclusive day count: End - Start + 1.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start)/(24*time.Hour)) + 1
}

// Overlaps reports whether the closed ranges share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

// Contains reports whether o lies within r (equal ranges included).
func (r DateRange) Contains(o DateRange) bool {
	return !o.Start.Before(r.Start) && !o.End.After(r.End)
}

func (r DateRange) Equal(o DateRange) bool {
	return r.Start.Equal(o.Start) && r.End.Equal(o.End)
}

// EndsBefore reports whether the whole range lies before day.
func (r DateRange) EndsBefore(day time.Time) bool {
	return r.End.Before(day)
}

func (r DateRange) String() string {
	return r.Start.Format(dateLayout) + "–" + r.End.Format(dateLayout)
}
