package engine

import "time"

// Urgency thresholds, in fractional days until the last usable window closes.
// Boundary values fall into the MORE urgent bucket: exactly 3.0 days is
// VERY_URGENT, exactly 7.0 is URGENT. Over-flagging urgency is preferred to
// under-flagging it.
const (
	veryUrgentDays = 3.0
	urgentDays     = 7.0
)

// ClassifyUrgency derives the urgency tier of a request from its schedule's
// last usable window relative to now. No upcoming window means EXPIRED: no
// actionable window remains. Never persisted — "now" moves, so every read
// recomputes.
func ClassifyUrgency(windows []ScheduledWindow, now time.Time) Urgency {
	deadline := LatestUpcoming(windows, now)
	if deadline == nil {
		return Expired
	}

	remaining := DaysBetween(now, deadline.EndInstant())
	switch {
	case remaining <= veryUrgentDays:
		return VeryUrgent
	case remaining <= urgentDays:
		return Urgent
	default:
		return NotUrgent
	}
}
