package ir

import "time"

// Clock supplies wall-clock time to time-dependent resolvers and the runner.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
