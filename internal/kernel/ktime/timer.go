package ktime

import (
	"sync"
	"time"

	"github.com/google/btree"
)

// Waker is the queue's view of a sleeping task: deliver one wake token.
type Waker interface {
	Unpark()
}

type timerEntry struct {
	when int64 // absolute deadline, clock milliseconds
	seq  uint64
	w    Waker
}

// entryLess orders timers by deadline, registration order breaking ties so
// equal deadlines fire first-registered first.
func entryLess(a, b timerEntry) bool {
	if a.when != b.when {
		return a.when < b.when
	}
	return a.seq < b.seq
}

// Queue delivers wakeups at absolute deadlines.
//
// Timers live in a B-tree keyed by (deadline, sequence); a single goroutine
// sleeps until the earliest deadline and unparks every due task. There is no
// cancellation: a registered wakeup always fires.
type Queue struct {
	clock Clock

	mu   sync.Mutex
	tree *btree.BTreeG[timerEntry]
	seq  uint64

	kick chan struct{} // poked when an earlier deadline is registered
	done chan struct{}
}

// NewQueue starts the delivery goroutine and returns the queue. Callers own
// the queue's lifetime and must Stop it.
func NewQueue(clock Clock) *Queue {
	q := &Queue{
		clock: clock,
		tree:  btree.NewG(8, entryLess),
		kick:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

// AddTimer registers a wakeup for w at the absolute time whenMillis. A
// deadline already in the past fires on the next delivery pass.
func (q *Queue) AddTimer(whenMillis int64, w Waker) {
	q.mu.Lock()
	q.seq++
	q.tree.ReplaceOrInsert(timerEntry{when: whenMillis, seq: q.seq, w: w})
	q.mu.Unlock()

	select {
	case q.kick <- struct{}{}:
	default:
	}
}

// Stop shuts down the delivery goroutine. Pending timers do not fire.
func (q *Queue) Stop() {
	close(q.done)
}

// Len returns the number of pending timers.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tree.Len()
}

func (q *Queue) run() {
	for {
		next, ok := q.fireDue()
		if !ok {
			// Nothing pending; wait for a registration.
			select {
			case <-q.kick:
			case <-q.done:
				return
			}
			continue
		}

		delay := next - q.clock.NowMillis()
		if delay < 1 {
			delay = 1
		}
		timer := time.NewTimer(time.Duration(delay) * time.Millisecond)
		select {
		case <-timer.C:
		case <-q.kick:
			timer.Stop()
		case <-q.done:
			timer.Stop()
			return
		}
	}
}

// fireDue unparks every task whose deadline has passed and returns the next
// pending deadline, or ok=false when the queue is empty.
func (q *Queue) fireDue() (next int64, ok bool) {
	now := q.clock.NowMillis()
	var due []Waker

	q.mu.Lock()
	for {
		e, found := q.tree.Min()
		if !found {
			break
		}
		if e.when > now {
			next, ok = e.when, true
			break
		}
		q.tree.DeleteMin()
		due = append(due, e.w)
	}
	q.mu.Unlock()

	// Unpark outside the queue lock; a woken task may immediately
	// register another timer.
	for _, w := range due {
		w.Unpark()
	}
	return next, ok
}
