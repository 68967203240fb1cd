package billing

import "time"

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// SystemClock returns time.Now in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// FixedClock returns a Clock stuck at t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// Day is the length of a billing day.
const Day = 24 * time.Hour

// DaysUntil returns whole days from now until t, rounded up, never negative.
func DaysUntil(now, t time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d / Day)
	if d%Day != 0 {
		days++
	}
	return days
}
