// Package clock abstracts time so that timer-driven components can be driven
// deterministically in tests.
package clock

import "time"

// Timer is a handle to a scheduled function.
type Timer interface {
	// Stop prevents the function from running. It returns false if the
	// function already ran or the timer was already stopped.
	Stop() bool
}

// Clock provides the current time and one-shot scheduled callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is a Clock backed by the time package.
type Real struct{}

// New returns the wall clock.
func New() Clock {
	return Real{}
}

// Now returns time.Now().
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
