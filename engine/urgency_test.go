package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aidlink/inventory-engine/engine"
)

func TestClassifyUrgency_Boundaries(t *testing.T) {
	// Single window ending 2024-06-04 12:00. Urgency depends on how far
	// "now" sits from that end; boundaries fall into the more urgent bucket.
	windows := []engine.ScheduledWindow{
		mustWindow(t, "2024-06-04", "09:00", "12:00"),
	}

	tests := []struct {
		name string
		now  string
		h, m int
		want engine.Urgency
	}{
		{"exactly 3.0 days out", "2024-06-01", 12, 0, engine.VeryUrgent},
		{"just under 3 days", "2024-06-01", 13, 0, engine.VeryUrgent},
		{"just over 3 days", "2024-06-01", 11, 0, engine.Urgent},
		{"exactly 7.0 days out", "2024-05-28", 12, 0, engine.Urgent},
		{"just over 7 days", "2024-05-28", 11, 45, engine.NotUrgent},
		{"window in progress", "2024-06-04", 10, 0, engine.VeryUrgent},
		{"window closed", "2024-06-04", 12, 0, engine.Expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := at(tt.now, tt.h, tt.m)
			assert.Equal(t, tt.want, engine.ClassifyUrgency(windows, now))
		})
	}
}

func TestClassifyUrgency_NoWindows(t *testing.T) {
	assert.Equal(t, engine.Expired, engine.ClassifyUrgency(nil, at("2024-06-01", 0, 0)))
}

func TestClassifyUrgency_UsesLastWindow(t *testing.T) {
	// The deadline is the LAST upcoming end — an early window closing soon
	// doesn't make the request very urgent while a later one remains.
	windows := []engine.ScheduledWindow{
		mustWindow(t, "2024-06-02", "09:00", "12:00"),
		mustWindow(t, "2024-06-20", "09:00", "12:00"),
	}
	now := at("2024-06-01", 0, 0)

	assert.Equal(t, engine.NotUrgent, engine.ClassifyUrgency(windows, now))
}
