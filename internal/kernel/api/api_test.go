package api

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kolkov/ksync/internal/kernel/resource"
	"github.com/kolkov/ksync/internal/kernel/sched"
)

// run spawns fn as a task of p and waits for it to finish, failing the test
// on timeout. Used for syscall sequences that must not block.
func run(t *testing.T, p *sched.Process, fn func(ctx context.Context)) {
	t.Helper()
	done := make(chan struct{})
	p.Spawn(func(ctx context.Context) {
		defer close(done)
		fn(ctx)
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
	}
}

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	k := NewKernel()
	t.Cleanup(k.Shutdown)
	return k
}

// TestMutexCreateAssignsFirstFitIDs verifies ascending id assignment and
// the per-class independence of the id spaces.
func TestMutexCreateAssignsFirstFitIDs(t *testing.T) {
	k := newTestKernel(t)
	p := k.NewProcess()

	run(t, p, func(ctx context.Context) {
		if got := MutexCreate(ctx, true); got != 0 {
			t.Errorf("first mutex id = %d, want 0", got)
		}
		if got := MutexCreate(ctx, false); got != 1 {
			t.Errorf("second mutex id = %d, want 1", got)
		}
		// Semaphores and condvars have their own tables.
		if got := SemaphoreCreate(ctx, 3); got != 0 {
			t.Errorf("first semaphore id = %d, want 0", got)
		}
		if got := CondvarCreate(ctx); got != 0 {
			t.Errorf("first condvar id = %d, want 0", got)
		}
	})
}

// TestCreateInitializesAccounting verifies the creation side effect: the
// available entry carries the starting capacity and every live task,
// including ones that predate the resource, gets zero ledger entries.
func TestCreateInitializesAccounting(t *testing.T) {
	k := newTestKernel(t)
	p := k.NewProcess()

	// An older task that exists before any resource does.
	elder := p.Spawn(func(ctx context.Context) {})
	p.Join()

	run(t, p, func(ctx context.Context) {
		MutexCreate(ctx, true)
		SemaphoreCreate(ctx, 5)
	})

	p.Lock()
	availMutex := p.Available[resource.ClassMutex].Clone()
	availSem := p.Available[resource.ClassSemaphore].Clone()
	p.Unlock()

	if diff := cmp.Diff(resource.Vector{1}, availMutex); diff != "" {
		t.Errorf("mutex available mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(resource.Vector{5}, availSem); diff != "" {
		t.Errorf("semaphore available mismatch (-want +got):\n%s", diff)
	}

	snap := elder.LedgerSnapshot(resource.ClassMutex)
	want := resource.Ledger{Need: resource.Vector{0}, Allocation: resource.Vector{0}}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("elder task ledger not extended (-want +got):\n%s", diff)
	}
}

// TestSemaphoreCreateRejectsNegativeCount verifies input validation.
func TestSemaphoreCreateRejectsNegativeCount(t *testing.T) {
	k := newTestKernel(t)
	p := k.NewProcess()

	run(t, p, func(ctx context.Context) {
		if got := SemaphoreCreate(ctx, -1); got != CodeInvalidArgument {
			t.Errorf("SemaphoreCreate(-1) = %d, want %d", got, CodeInvalidArgument)
		}
	})
}

// TestMutexLockUpdatesAccounting verifies the optimistic grant: lock moves
// one unit from available to the caller's allocation, unlock moves it back.
func TestMutexLockUpdatesAccounting(t *testing.T) {
	k := newTestKernel(t)
	p := k.NewProcess()

	var task *sched.Task
	done := make(chan struct{})
	locked := make(chan struct{})
	release := make(chan struct{})

	task = p.Spawn(func(ctx context.Context) {
		defer close(done)
		MutexCreate(ctx, true)
		MutexLock(ctx, 0)
		close(locked)
		<-release
		MutexUnlock(ctx, 0)
	})

	<-locked
	snap := task.LedgerSnapshot(resource.ClassMutex)
	want := resource.Ledger{Need: resource.Vector{0}, Allocation: resource.Vector{1}}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("ledger while holding (-want +got):\n%s", diff)
	}
	p.Lock()
	if got := p.Available[resource.ClassMutex].Get(0); got != 0 {
		t.Errorf("available while held = %d, want 0", got)
	}
	p.Unlock()

	close(release)
	<-done

	snap = task.LedgerSnapshot(resource.ClassMutex)
	want = resource.Ledger{Need: resource.Vector{0}, Allocation: resource.Vector{0}}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("ledger after unlock (-want +got):\n%s", diff)
	}
	p.Lock()
	if got := p.Available[resource.ClassMutex].Get(0); got != 1 {
		t.Errorf("available after unlock = %d, want 1", got)
	}
	p.Unlock()
}

// TestDetectorRefusalRollsBack verifies rollback correctness: a refused
// acquisition leaves every accounting entry exactly as before the call.
func TestDetectorRefusalRollsBack(t *testing.T) {
	k := newTestKernel(t)
	p := k.NewProcess()

	lockedA := make(chan struct{})
	lockedB := make(chan struct{})
	t1blocked := make(chan struct{})
	var code int64
	done := make(chan struct{})

	// Task 1: holds A, then requests B (parks; B is held by task 2).
	p.Spawn(func(ctx context.Context) {
		EnableDeadlockDetect(ctx, 1)
		MutexCreate(ctx, true) // A = 0
		MutexCreate(ctx, true) // B = 1
		MutexLock(ctx, 0)
		close(lockedA)
		<-lockedB
		close(t1blocked)
		MutexLock(ctx, 1) // safe: task 2 can still finish; parks here
	})

	<-lockedA
	p.Spawn(func(ctx context.Context) {
		defer close(done)
		MutexLock(ctx, 1)
		close(lockedB)
		<-t1blocked
		// Give task 1 time to enter the detector and park on B.
		time.Sleep(50 * time.Millisecond)

		before := sched.FromContext(ctx).LedgerSnapshot(resource.ClassMutex)
		code = MutexLock(ctx, 0) // would complete the cycle
		after := sched.FromContext(ctx).LedgerSnapshot(resource.ClassMutex)

		if diff := cmp.Diff(before, after); diff != "" {
			t.Errorf("accounting changed on refused path (-before +after):\n%s", diff)
		}
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task 2 did not finish")
	}
	if code != CodeWouldDeadlock {
		t.Errorf("cycle-completing lock = %#x, want %#x", code, CodeWouldDeadlock)
	}
}

// TestAllocationInvariantAtQuiescence verifies that, with no syscall in
// flight, allocations plus available always equal capacity.
func TestAllocationInvariantAtQuiescence(t *testing.T) {
	k := newTestKernel(t)
	p := k.NewProcess()

	hold := make(chan struct{})
	holding := make(chan struct{})
	done := make(chan struct{})

	p.Spawn(func(ctx context.Context) {
		defer close(done)
		MutexCreate(ctx, true)  // capacity 1
		SemaphoreCreate(ctx, 3) // capacity 3
		MutexLock(ctx, 0)
		SemaphoreDown(ctx, 0)
		SemaphoreDown(ctx, 0)
		close(holding)
		<-hold
		SemaphoreUp(ctx, 0)
		SemaphoreUp(ctx, 0)
		MutexUnlock(ctx, 0)
	})

	<-holding
	checkInvariant := func(c resource.Class, id int, capacity uint64) {
		p.Lock()
		defer p.Unlock()
		total := p.Available[c].Get(id)
		for _, task := range p.Tasks() {
			snap := task.LedgerSnapshot(c)
			total += snap.Allocation.Get(id)
		}
		if total != capacity {
			t.Errorf("%v id %d: allocations+available = %d, want %d", c, id, total, capacity)
		}
	}
	checkInvariant(resource.ClassMutex, 0, 1)
	checkInvariant(resource.ClassSemaphore, 0, 3)

	close(hold)
	<-done
	checkInvariant(resource.ClassMutex, 0, 1)
	checkInvariant(resource.ClassSemaphore, 0, 3)
}

// TestEnableDeadlockDetectValidatesFlag verifies only 0 and 1 are accepted.
func TestEnableDeadlockDetectValidatesFlag(t *testing.T) {
	k := newTestKernel(t)
	p := k.NewProcess()

	run(t, p, func(ctx context.Context) {
		if got := EnableDeadlockDetect(ctx, 1); got != CodeSuccess {
			t.Errorf("EnableDeadlockDetect(1) = %d, want 0", got)
		}
		if got := EnableDeadlockDetect(ctx, 0); got != CodeSuccess {
			t.Errorf("EnableDeadlockDetect(0) = %d, want 0", got)
		}
		for _, bad := range []int{2, -1, 100} {
			if got := EnableDeadlockDetect(ctx, bad); got != CodeInvalidArgument {
				t.Errorf("EnableDeadlockDetect(%d) = %d, want %d", bad, got, CodeInvalidArgument)
			}
		}
	})
}

// TestSleepWakesAfterDuration verifies the timed block returns 0 after at
// least the requested duration.
func TestSleepWakesAfterDuration(t *testing.T) {
	k := newTestKernel(t)
	p := k.NewProcess()

	run(t, p, func(ctx context.Context) {
		start := time.Now()
		if got := Sleep(ctx, 30); got != CodeSuccess {
			t.Errorf("Sleep = %d, want 0", got)
		}
		// The millisecond clock truncates, so allow the wake to land a
		// touch early in wall time.
		if elapsed := time.Since(start); elapsed < 28*time.Millisecond {
			t.Errorf("Sleep returned after %v, want about 30ms", elapsed)
		}
	})
}

// TestBadResourceIDPanics verifies an out-of-range id is a fatal
// kernel-internal fault rather than an error return.
func TestBadResourceIDPanics(t *testing.T) {
	k := newTestKernel(t)
	p := k.NewProcess()

	run(t, p, func(ctx context.Context) {
		defer func() {
			if recover() == nil {
				t.Error("MutexLock on unknown id did not panic")
			}
		}()
		MutexLock(ctx, 9)
	})
}
