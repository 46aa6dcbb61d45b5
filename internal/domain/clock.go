package domain

import "time"

// Clock abstracts time for the allocator, lifecycle and sweeper so
// window math is testable against fixed instants.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
