package core

import (
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// DateRange is an inclusive date interval. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339 instant and
// returns it in UTC. Empty input yields the zero time and no error.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t.UTC(), nil
}

// NewDate builds a UTC midnight date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last calendar day of t's month at midnight.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// MonthKey formats t as "YYYY-MM" using its UTC calendar date.
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

func (r DateRange) HasStart() bool { return !r.Start.IsZero() }
func (r DateRange) HasEnd() bool   { return !r.End.IsZero() }

// Inverted reports a range whose start falls after its end.
func (r DateRange) Inverted() bool {
	return r.HasStart() && r.HasEnd() && r.Start.After(EndOfDay(r.End))
}

// Contains reports whether t falls within the range. The end bound covers
// its whole calendar day.
func (r DateRange) Contains(t time.Time) bool {
	if r.HasStart() && t.Before(r.Start) {
		return false
	}
	if r.HasEnd() && t.After(EndOfDay(r.End)) {
		return false
	}
	return true
}

// Key is a stable string form used for cache keys.
func (r DateRange) Key() string {
	format := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	return format(r.Start) + "|" + format(r.End)
}
