package txn

import "time"

// Clock is read once per transaction to stamp every row written under it.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always returns t. Useful in tests.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
