/*
window.go - Scheduled windows and upcoming-window resolution

PURPOSE:
  An aid request's schedule is a set of (day, start-time, end-time) slots.
  This file converts those slots into absolute instants and answers the two
  questions everything else depends on:

    EarliestUpcoming: the first slot that hasn't started yet
    LatestUpcoming:   the slot whose end is furthest out among those that
                      haven't finished yet

UPCOMING IS ASYMMETRIC ON PURPOSE:
  "Upcoming" is evaluated independently for start vs. end. A window already
  in progress (start <= now < end) still counts toward LatestUpcoming but not
  EarliestUpcoming. That lets a request's aid period begin at its earliest
  not-yet-begun slot while its deadline is the end of its last not-yet-finished
  slot — an in-progress slot keeps the deadline alive without restarting the
  period.

INVARIANT:
  StartTime < EndTime, same-day windows only. No overnight spans.

SEE ALSO:
  - urgency.go: Classifies requests by LatestUpcoming's end vs. now
  - availability.go: Uses LatestUpcoming's end as the ledger cutoff
*/
package engine

import "time"

// ScheduledWindow is a single day/start/end slot within which a party is
// available to give or receive items. Immutable value; order within a
// schedule is irrelevant.
type ScheduledWindow struct {
	Day   time.Time // UTC midnight
	Start TimeOfDay
	End   TimeOfDay
}

// ParseWindow builds a validated window from wire-format strings.
// Returns *MalformedScheduleError if the day or either time cannot be parsed,
// or if the start is not strictly before the end.
func ParseWindow(day, start, end string) (ScheduledWindow, error) {
	d, err := ParseDay(day)
	if err != nil {
		return ScheduledWindow{}, &MalformedScheduleError{Field: "day", Value: day, Err: err}
	}
	s, err := ParseClock(start)
	if err != nil {
		return ScheduledWindow{}, &MalformedScheduleError{Field: "startTime", Value: start, Err: err}
	}
	e, err := ParseClock(end)
	if err != nil {
		return ScheduledWindow{}, &MalformedScheduleError{Field: "endTime", Value: end, Err: err}
	}
	w := ScheduledWindow{Day: d, Start: s, End: e}
	if err := w.Validate(); err != nil {
		return ScheduledWindow{}, err
	}
	return w, nil
}

// Validate enforces the same-day, start-before-end invariant.
func (w ScheduledWindow) Validate() error {
	if !w.Start.Before(w.End) {
		return &MalformedScheduleError{
			Field: "startTime",
			Value: w.Start.String() + ">=" + w.End.String(),
			Err:   ErrMalformedSchedule,
		}
	}
	return nil
}

// StartInstant is the absolute instant the window opens.
func (w ScheduledWindow) StartInstant() time.Time { return w.Start.On(w.Day) }

// EndInstant is the absolute instant the window closes.
func (w ScheduledWindow) EndInstant() time.Time { return w.End.On(w.Day) }

// ResolveInstant combines the window's day with either its start or end
// time-of-day. Fails on an invalid window so malformed schedules surface at
// resolution time, not as silently-wrong instants.
func ResolveInstant(w ScheduledWindow, useStart bool) (time.Time, error) {
	if err := w.Validate(); err != nil {
		return time.Time{}, err
	}
	if useStart {
		return w.StartInstant(), nil
	}
	return w.EndInstant(), nil
}

// EarliestUpcoming returns the window with the minimum start instant among
// those whose start is strictly after now. Nil when no window qualifies.
func EarliestUpcoming(windows []ScheduledWindow, now time.Time) *ScheduledWindow {
	var best *ScheduledWindow
	for i := range windows {
		w := windows[i]
		if !w.StartInstant().After(now) {
			continue
		}
		if best == nil || w.StartInstant().Before(best.StartInstant()) {
			best = &windows[i]
		}
	}
	return best
}

// LatestUpcoming returns the window with the maximum end instant among those
// whose end is strictly after now. Nil when no window qualifies. An
// in-progress window qualifies here: its end is still ahead.
func LatestUpcoming(windows []ScheduledWindow, now time.Time) *ScheduledWindow {
	var best *ScheduledWindow
	for i := range windows {
		w := windows[i]
		if !w.EndInstant().After(now) {
			continue
		}
		if best == nil || w.EndInstant().After(best.EndInstant()) {
			best = &windows[i]
		}
	}
	return best
}

// AidPeriod returns the span from the earliest upcoming start to the latest
// upcoming end. The second return is false when no window is upcoming in
// either sense.
func AidPeriod(windows []ScheduledWindow, now time.Time) (start, end time.Time, ok bool) {
	last := LatestUpcoming(windows, now)
	if last == nil {
		return time.Time{}, time.Time{}, false
	}
	end = last.EndInstant()
	if first := EarliestUpcoming(windows, now); first != nil {
		start = first.StartInstant()
	} else {
		// Only an in-progress window remains; the period is already underway.
		start = now
	}
	return start, end, true
}
