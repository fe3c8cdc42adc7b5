// Package ktime provides the timer facility behind the sleep syscall: a
// monotonic millisecond clock and a queue of absolute-deadline wakeups.
//
// Sleep is a plain timed block, orthogonal to the resource accounting
// model; the queue only knows how to unpark a task at its deadline.
package ktime

import "time"

// Clock reads the current time in milliseconds. The syscall layer computes
// absolute expiry times against it; tests substitute their own.
type Clock interface {
	NowMillis() int64
}

type systemClock struct {
	base time.Time
}

// SystemClock returns a Clock backed by the runtime's monotonic clock.
func SystemClock() Clock {
	return &systemClock{base: time.Now()}
}

func (c *systemClock) NowMillis() int64 {
	return time.Since(c.base).Milliseconds()
}
