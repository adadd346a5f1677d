package engine

import "time"

// Clock provides "now" at the system boundary. Core computations never call
// it — they take now as an explicit argument — but the API layer and the
// sweep scheduler need a single injectable source so tests stay
// deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Test helper.
type FixedClock struct{ At time.Time }

func (c FixedClock) Now() time.Time { return c.At }
