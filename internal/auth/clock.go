package auth

import (
	"time"

	"github.com/juju/clock"
)

// Clock is the subset of clock.Clock the poll loop sleeps on
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// WallClock returns the real clock
func WallClock() Clock {
	return clock.WallClock
}
