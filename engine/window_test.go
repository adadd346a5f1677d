package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidlink/inventory-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func mustWindow(t *testing.T, day, start, end string) engine.ScheduledWindow {
	t.Helper()
	w, err := engine.ParseWindow(day, start, end)
	require.NoError(t, err)
	return w
}

func at(day string, hour, minute int) time.Time {
	d, err := engine.ParseDay(day)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// =============================================================================
// PARSING AND VALIDATION
// =============================================================================

func TestParseWindow_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		day   string
		start string
		end   string
	}{
		{"bad day", "June 1st", "09:00", "12:00"},
		{"bad start time", "2024-06-01", "9am", "12:00"},
		{"bad end time", "2024-06-01", "09:00", "noon"},
		{"start equals end", "2024-06-01", "09:00", "09:00"},
		{"start after end", "2024-06-01", "14:00", "09:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.ParseWindow(tt.day, tt.start, tt.end)
			require.Error(t, err)
			assert.ErrorIs(t, err, engine.ErrMalformedSchedule)
		})
	}
}

func TestResolveInstant(t *testing.T) {
	w := mustWindow(t, "2024-06-01", "09:30", "12:00")

	start, err := engine.ResolveInstant(w, true)
	require.NoError(t, err)
	assert.Equal(t, at("2024-06-01", 9, 30), start)

	end, err := engine.ResolveInstant(w, false)
	require.NoError(t, err)
	assert.Equal(t, at("2024-06-01", 12, 0), end)
}

func TestResolveInstant_InvalidWindow(t *testing.T) {
	bad := engine.ScheduledWindow{
		Day:   at("2024-06-01", 0, 0),
		Start: engine.TimeOfDay{Hour: 12},
		End:   engine.TimeOfDay{Hour: 9},
	}
	_, err := engine.ResolveInstant(bad, true)
	assert.ErrorIs(t, err, engine.ErrMalformedSchedule)
}

// =============================================================================
// UPCOMING-WINDOW RESOLUTION
// =============================================================================

func TestEarliestAndLatestUpcoming(t *testing.T) {
	windows := []engine.ScheduledWindow{
		mustWindow(t, "2024-06-10", "09:00", "12:00"),
		mustWindow(t, "2024-06-05", "14:00", "17:00"),
		mustWindow(t, "2024-06-20", "08:00", "10:00"),
	}
	now := at("2024-06-01", 0, 0)

	first := engine.EarliestUpcoming(windows, now)
	require.NotNil(t, first)
	assert.Equal(t, at("2024-06-05", 14, 0), first.StartInstant())

	last := engine.LatestUpcoming(windows, now)
	require.NotNil(t, last)
	assert.Equal(t, at("2024-06-20", 10, 0), last.EndInstant())
}

func TestUpcoming_InProgressWindowCountsOnlyForLatest(t *testing.T) {
	// A window already in progress (start <= now < end) keeps the deadline
	// alive but does not restart the aid period.
	windows := []engine.ScheduledWindow{
		mustWindow(t, "2024-06-01", "09:00", "17:00"),
	}
	now := at("2024-06-01", 12, 0)

	assert.Nil(t, engine.EarliestUpcoming(windows, now))

	last := engine.LatestUpcoming(windows, now)
	require.NotNil(t, last)
	assert.Equal(t, at("2024-06-01", 17, 0), last.EndInstant())
}

func TestUpcoming_AllWindowsClosed(t *testing.T) {
	windows := []engine.ScheduledWindow{
		mustWindow(t, "2024-06-01", "09:00", "12:00"),
	}
	now := at("2024-06-02", 0, 0)

	assert.Nil(t, engine.EarliestUpcoming(windows, now))
	assert.Nil(t, engine.LatestUpcoming(windows, now))
}

func TestUpcoming_BoundaryIsStrict(t *testing.T) {
	windows := []engine.ScheduledWindow{
		mustWindow(t, "2024-06-01", "09:00", "12:00"),
	}

	// now exactly at start: not "upcoming" by start
	assert.Nil(t, engine.EarliestUpcoming(windows, at("2024-06-01", 9, 0)))
	// now exactly at end: not "upcoming" by end
	assert.Nil(t, engine.LatestUpcoming(windows, at("2024-06-01", 12, 0)))
}

func TestAidPeriod(t *testing.T) {
	windows := []engine.ScheduledWindow{
		mustWindow(t, "2024-06-05", "09:00", "12:00"),
		mustWindow(t, "2024-06-10", "14:00", "17:00"),
	}
	now := at("2024-06-01", 0, 0)

	start, end, ok := engine.AidPeriod(windows, now)
	require.True(t, ok)
	assert.Equal(t, at("2024-06-05", 9, 0), start)
	assert.Equal(t, at("2024-06-10", 17, 0), end)

	_, _, ok = engine.AidPeriod(windows, at("2024-07-01", 0, 0))
	assert.False(t, ok)
}
