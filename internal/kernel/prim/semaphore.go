package prim

import "sync"

// Semaphore is a counting semaphore with direct hand-off to waiters.
//
// The internal count is the actual concurrency primitive; it is distinct
// from the accounting model's available vector, which tracks the detector's
// view of the same resource. The two are maintained in lockstep by the
// syscall layer, not derived from one another, and may transiently disagree
// under the optimistic-grant policy.
//
// A negative count means -count tasks are parked waiting for units.
type Semaphore struct {
	mu      sync.Mutex
	count   int64
	waiters WaitQueue
}

// NewSemaphore returns a semaphore holding n initial units.
func NewSemaphore(n uint) *Semaphore {
	return &Semaphore{count: int64(n)}
}

// Down consumes one unit, parking the caller when none is free. The unit is
// handed off directly by the waking Up, so a woken task returns owning it
// without re-checking the count.
func (s *Semaphore) Down(t Task) {
	s.mu.Lock()
	s.count--
	if s.count < 0 {
		s.waiters.Enqueue(t)
		s.mu.Unlock()
		t.Park()
		return
	}
	s.mu.Unlock()
}

// Up releases one unit, waking the longest-waiting task if any is parked.
func (s *Semaphore) Up() {
	s.mu.Lock()
	s.count++
	var w Task
	if s.count <= 0 {
		w = s.waiters.Dequeue()
	}
	s.mu.Unlock()
	if w != nil {
		w.Unpark()
	}
}
