package domain

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimestampLayout is the ISO-8601 form used for created_date, updated_date
// and last_analyzed: UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic output.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for record timestamps. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}

// Timestamp formats the current time as a record timestamp.
func Timestamp() string {
	return FormatTimestamp(clock.Now())
}

// FormatTimestamp formats t as a record timestamp.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Sleep waits d on the package clock. It returns ctx.Err() if ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
