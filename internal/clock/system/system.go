// Package system supplies wall-clock time to the pipeline.
package system

import "time"

// Clock reports the current UTC time. Backup object names and run timestamps
// both derive from it.
type Clock struct{}

// New returns a Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
