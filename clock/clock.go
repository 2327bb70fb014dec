// Package clock abstracts wall time and one-shot timers so schedulers can be
// driven by a virtual clock in tests
package clock

import "time"

// Timer is a pending callback created by Clock.AfterFunc
type Timer interface {
	// Stop prevents the callback from firing
	// Returns false if the timer already fired or was stopped
	Stop() bool
}

// Clock provides current time and delayed callbacks
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is a Clock backed by the runtime timer
type Real struct{}

// NewReal creates a system clock
func NewReal() Real {
	return Real{}
}

// Now returns the current time with monotonic clock reading
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc runs f on its own goroutine after d
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
