package prim

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// stubTask is a minimal Task for mechanism tests: a one-token wake channel,
// the same shape the scheduler's task uses.
type stubTask struct {
	wake chan struct{}
}

func newStubTask() *stubTask {
	return &stubTask{wake: make(chan struct{}, 1)}
}

func (t *stubTask) Park() { <-t.wake }

func (t *stubTask) Unpark() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// TestWaitQueueFIFO verifies strict first-in first-out wake order.
func TestWaitQueueFIFO(t *testing.T) {
	var q WaitQueue
	a, b, c := newStubTask(), newStubTask(), newStubTask()

	q.Enqueue(a)
	q.Enqueue(b)
	q.Enqueue(c)

	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	if got := q.Dequeue(); got != Task(a) {
		t.Error("first Dequeue did not return first enqueued task")
	}
	if got := q.Dequeue(); got != Task(b) {
		t.Error("second Dequeue did not return second enqueued task")
	}
	if got := q.Dequeue(); got != Task(c) {
		t.Error("third Dequeue did not return third enqueued task")
	}
	if got := q.Dequeue(); got != nil {
		t.Errorf("Dequeue on empty queue = %v, want nil", got)
	}
}

// TestSpinMutexMutualExclusion hammers a shared counter from several
// goroutines; any lost update means the spin lock failed.
func TestSpinMutexMutualExclusion(t *testing.T) {
	testMutexMutualExclusion(t, &SpinMutex{})
}

// TestBlockingMutexMutualExclusion does the same for the blocking variant.
func TestBlockingMutexMutualExclusion(t *testing.T) {
	testMutexMutualExclusion(t, &BlockingMutex{})
}

func testMutexMutualExclusion(t *testing.T, m Mutex) {
	t.Helper()

	const (
		workers    = 8
		iterations = 500
	)
	var counter int
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := newStubTask()
			for j := 0; j < iterations; j++ {
				m.Lock(task)
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()

	if counter != workers*iterations {
		t.Errorf("counter = %d, want %d (lost updates under contention)", counter, workers*iterations)
	}
}

// TestBlockingMutexParksWaiter verifies that a contending task suspends
// rather than spinning, and is woken by Unlock.
func TestBlockingMutexParksWaiter(t *testing.T) {
	m := &BlockingMutex{}
	holder := newStubTask()
	waiter := newStubTask()

	m.Lock(holder)

	acquired := make(chan struct{})
	go func() {
		m.Lock(waiter)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("contending Lock returned while mutex was held")
	case <-time.After(20 * time.Millisecond):
	}

	m.Unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by Unlock")
	}
	m.Unlock()
}

// TestSemaphoreLimitsConcurrency runs three tasks through a two-unit
// semaphore and checks at most two are inside at once, the third being
// parked until an Up.
func TestSemaphoreLimitsConcurrency(t *testing.T) {
	s := NewSemaphore(2)

	var inside, peak atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := newStubTask()
			s.Down(task)

			n := inside.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inside.Add(-1)

			s.Up()
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", got)
	}
	if got := inside.Load(); got != 0 {
		t.Errorf("tasks still inside after join: %d", got)
	}
}

// TestSemaphoreZeroUnitsBlocksUntilUp verifies the exhausted-count path:
// the first Down parks until a matching Up.
func TestSemaphoreZeroUnitsBlocksUntilUp(t *testing.T) {
	s := NewSemaphore(0)

	done := make(chan struct{})
	go func() {
		s.Down(newStubTask())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Down on empty semaphore returned without an Up")
	case <-time.After(20 * time.Millisecond):
	}

	s.Up()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Down was not woken by Up")
	}
}

// TestCondvarSignalBeforeParkIsNotLost exercises the missed-wakeup window:
// the signal races the waiter between releasing the mutex and parking, and
// must still be observed.
func TestCondvarSignalBeforeParkIsNotLost(t *testing.T) {
	cv := NewCondvar()
	m := NewMutex(true)
	waiter := newStubTask()
	signaler := newStubTask()

	woken := make(chan struct{})
	go func() {
		m.Lock(waiter)
		cv.Wait(waiter, m)
		m.Unlock()
		close(woken)
	}()

	// Signal as soon as the mutex is observably released by Wait. The
	// waiter may not have parked yet; the wake token must be retained.
	m.Lock(signaler)
	cv.Signal()
	m.Unlock()

	// The signal may have fired before the waiter enqueued at all; keep
	// signaling until it wakes, exercising the race window repeatedly.
	for {
		select {
		case <-woken:
			return
		case <-time.After(10 * time.Millisecond):
			cv.Signal()
		}
	}
}

// TestCondvarSignalWithoutWaiterIsNoop verifies a signal with an empty
// queue wakes nobody and does not disturb later waits.
func TestCondvarSignalWithoutWaiterIsNoop(t *testing.T) {
	cv := NewCondvar()
	m := NewMutex(true)

	cv.Signal() // nothing queued

	waiter := newStubTask()
	woken := make(chan struct{})
	go func() {
		m.Lock(waiter)
		cv.Wait(waiter, m)
		m.Unlock()
		close(woken)
	}()

	select {
	case <-woken:
		t.Fatal("waiter woke from a signal that preceded its wait")
	case <-time.After(20 * time.Millisecond):
	}

	cv.Signal()
	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by the second signal")
	}
}

// TestCondvarWaitReacquiresMutex verifies the woken waiter holds the mutex
// when Wait returns.
func TestCondvarWaitReacquiresMutex(t *testing.T) {
	cv := NewCondvar()
	m := NewMutex(true)
	waiter := newStubTask()
	producer := newStubTask()

	shared := 0
	observed := make(chan int, 1)

	go func() {
		m.Lock(waiter)
		cv.Wait(waiter, m)
		observed <- shared // must see the producer's write, under the mutex
		m.Unlock()
	}()

	// Mutate shared state under the mutex, then signal.
	for {
		m.Lock(producer)
		if shared == 0 {
			shared = 42
		}
		cv.Signal()
		m.Unlock()

		select {
		case got := <-observed:
			if got != 42 {
				t.Errorf("waiter observed %d, want 42", got)
			}
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}
