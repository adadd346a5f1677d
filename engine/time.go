package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE AND TIME-OF-DAY - Calendar arithmetic at the granularity the domain uses
// =============================================================================

// Expiration comparisons and "usable from" cutoffs work at calendar-day
// granularity, never time-of-day: a lot expiring 2024-06-10 is equally expired
// at 00:01 and 23:59 of that day. Keeping the comparisons date-only avoids
// timezone and time-of-day jitter changing an availability answer.

const (
	dayLayout   = "2006-01-02"
	clockLayout = "15:04"
)

// DateOf truncates an instant to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two instants fall on the same UTC calendar day.
func SameDate(a, b time.Time) bool { return DateOf(a).Equal(DateOf(b)) }

// ParseDay parses a "2006-01-02" date into a UTC midnight instant.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatDay renders an instant's UTC calendar day as "2006-01-02".
func FormatDay(t time.Time) string { return t.UTC().Format(dayLayout) }

// TimeOfDay is a wall-clock time within a day, minute granularity.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseClock parses a "15:04" time-of-day.
func ParseClock(s string) (TimeOfDay, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) Before(o TimeOfDay) bool { return t.Minutes() < o.Minutes() }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// On combines the time-of-day with a calendar day into one absolute instant.
func (t TimeOfDay) On(day time.Time) time.Time {
	d := DateOf(day)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, time.UTC)
}

// DaysBetween returns the fractional number of days from `from` to `to`.
// Negative when `to` precedes `from`. Urgency classification depends on the
// fraction: "ends in exactly 3.0 days" and "ends in 3.1 days" are different
// tiers.
func DaysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}
