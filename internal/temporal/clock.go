package temporal

import "time"

// Clock supplies "now" for the latest flag, in the same unit as version
// timestamps.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

// Now implements Clock.
func (f ClockFunc) Now() int64 {
	return f()
}

// SystemClock reports wall time in Unix seconds.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() int64 {
	return time.Now().Unix()
}
