// Package clock abstracts timer scheduling so timer-driven state machines can
// be tested without wall-clock waits.
package clock

import "time"

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// callback from firing.
	Stop() bool
}

type Clock interface {
	Now() time.Time
	// AfterFunc schedules f to run once after d.
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// New returns the wall clock.
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
