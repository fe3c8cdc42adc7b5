package sched

import (
	"context"
	"sync"

	"github.com/kolkov/ksync/internal/kernel/ktime"
	"github.com/kolkov/ksync/internal/kernel/prim"
	"github.com/kolkov/ksync/internal/kernel/resource"
)

// Process owns the resource tables, the per-class available vectors, and
// the task list the deadlock detector scans.
//
// All exported mutable state is guarded by the process exclusive-access
// lock (Lock/Unlock). The syscall layer takes it before any task lock and
// releases it before invoking a mechanism that can park.
type Process struct {
	// PID identifies the process in trace output. Immutable.
	PID int

	clock ktime.Clock
	timer *ktime.Queue

	mu sync.Mutex
	wg sync.WaitGroup

	// tasks is the live task list; a task's index is its tid. Guarded by
	// the process lock.
	tasks []*Task

	// Mutexes, Semaphores and Condvars map resource ids to primitive
	// instances. The process is the long-lived owner of every instance;
	// an in-flight syscall clones a temporary reference before releasing
	// the process lock. Guarded by the process lock.
	Mutexes    resource.Table[prim.Mutex]
	Semaphores resource.Table[*prim.Semaphore]
	Condvars   resource.Table[*prim.Condvar]

	// Available holds, per class, the units of each resource not
	// currently allocated to any task. Guarded by the process lock.
	Available [resource.NumClasses]resource.Vector

	// DeadlockDetect gates the safety check on blocking acquisitions.
	// Guarded by the process lock.
	DeadlockDetect bool
}

// NewProcess creates an empty process bound to the kernel's clock and timer
// queue.
func NewProcess(pid int, clock ktime.Clock, timer *ktime.Queue) *Process {
	return &Process{PID: pid, clock: clock, timer: timer}
}

// Lock acquires the process exclusive-access lock.
func (p *Process) Lock() { p.mu.Lock() }

// Unlock releases the process exclusive-access lock.
func (p *Process) Unlock() { p.mu.Unlock() }

// Clock returns the kernel clock used for sleep deadlines.
func (p *Process) Clock() ktime.Clock { return p.clock }

// Timer returns the kernel timer queue used for sleep wakeups.
func (p *Process) Timer() *ktime.Queue { return p.timer }

// Spawn starts fn as a new task. The tid is the task's slot in the task
// list; the task function receives a context carrying the task, which is
// what the syscalls consume.
func (p *Process) Spawn(fn func(ctx context.Context)) *Task {
	p.mu.Lock()
	t := &Task{
		TID:  len(p.tasks),
		Proc: p,
		wake: make(chan struct{}, 1),
	}
	p.tasks = append(p.tasks, t)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn(WithTask(context.Background(), t))
	}()
	return t
}

// Join blocks until every spawned task function has returned.
func (p *Process) Join() {
	p.wg.Wait()
}

// Tasks returns the live task list in tid order. Callers must hold the
// process lock; the detector iterates the returned slice taking task locks
// one at a time.
func (p *Process) Tasks() []*Task {
	return p.tasks
}

// TaskCount returns the number of live tasks, taking the process lock
// itself. Used by tests and the simulator.
func (p *Process) TaskCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}
