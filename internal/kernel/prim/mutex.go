package prim

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Mutex is the common capability of the two mutex variants. The variant is
// chosen at creation time and is invisible to the syscall surface: both are
// one unit of mutual exclusion.
type Mutex interface {
	// Lock acquires the mutex on behalf of t, suspending or spinning
	// until it is free.
	Lock(t Task)

	// Unlock releases the mutex and, for the blocking variant, wakes the
	// longest-waiting task.
	Unlock()
}

// NewMutex returns a blocking mutex when blocking is true and a spin mutex
// otherwise, matching the creation syscall's parameter.
func NewMutex(blocking bool) Mutex {
	if blocking {
		return &BlockingMutex{}
	}
	return &SpinMutex{}
}

// SpinMutex busy-waits on an atomic flag and never suspends the task.
//
// Spinning is only a sensible policy when another task can run concurrently
// and release the lock; the loop yields to the scheduler between attempts
// so a spinner cannot starve the holder.
type SpinMutex struct {
	locked atomic.Bool
}

// Lock spins until the flag is won. The Task argument is unused: a spinner
// never parks.
func (m *SpinMutex) Lock(Task) {
	for !m.locked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// Unlock clears the flag. The next spinner to retry wins the lock.
func (m *SpinMutex) Unlock() {
	m.locked.Store(false)
}

// BlockingMutex suspends contending tasks on a FIFO wait queue.
//
// Hand-off is implicit: Unlock clears the held flag and wakes the head
// waiter, which re-attempts acquisition once it is scheduled again. A
// freshly arriving task can therefore win over a woken waiter; the waiter
// simply re-queues.
type BlockingMutex struct {
	mu      sync.Mutex
	held    bool
	waiters WaitQueue
}

// Lock acquires the mutex, parking the caller while it is held.
func (m *BlockingMutex) Lock(t Task) {
	for {
		m.mu.Lock()
		if !m.held {
			m.held = true
			m.mu.Unlock()
			return
		}
		m.waiters.Enqueue(t)
		m.mu.Unlock()
		t.Park()
	}
}

// Unlock releases the mutex and wakes the head waiter, if any.
func (m *BlockingMutex) Unlock() {
	m.mu.Lock()
	m.held = false
	w := m.waiters.Dequeue()
	m.mu.Unlock()
	if w != nil {
		w.Unpark()
	}
}
