package prim

import "sync"

// Condvar is a condition variable used with a mutex from the same process.
//
// Condition variables are not covered by the deadlock detector; the syscall
// layer passes them straight through to this mechanism.
type Condvar struct {
	mu      sync.Mutex
	waiters WaitQueue
}

// NewCondvar returns an empty condition variable.
func NewCondvar() *Condvar {
	return &Condvar{}
}

// Wait atomically records t as a waiter and releases m, parks until a
// Signal, then reacquires m before returning.
//
// The caller is enqueued before m is released, so a Signal that lands
// anywhere between the release and the park still finds the waiter and its
// wake token is retained by Park. That closes the missed-wakeup window.
func (c *Condvar) Wait(t Task, m Mutex) {
	c.mu.Lock()
	c.waiters.Enqueue(t)
	c.mu.Unlock()

	m.Unlock()
	t.Park()
	m.Lock(t)
}

// Signal wakes at most one waiter. The woken task proceeds to reacquire the
// mutex it released in Wait; no ordering is promised among multiple signals
// beyond one wake per call, FIFO over waiters.
func (c *Condvar) Signal() {
	c.mu.Lock()
	w := c.waiters.Dequeue()
	c.mu.Unlock()
	if w != nil {
		w.Unpark()
	}
}
