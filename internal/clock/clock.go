// Package clock abstracts the time source so temporal logic can be tested
// against fixed instants.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

// Now returns the current local time.
func (System) Now() time.Time { return time.Now() }
