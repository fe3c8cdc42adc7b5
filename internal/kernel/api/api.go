// Package api implements the sync syscall surface: creation and lifecycle
// of mutexes, semaphores and condition variables, the sleep syscall, and
// the deadlock-detection toggle.
//
// Each syscall locates the caller's task and process from the context,
// mutates accounting state under the process and task exclusive-access
// locks, optionally runs the safety check, and only then invokes the
// underlying mechanism, with every lock released first because the
// mechanism may park the caller.
//
// Return convention follows the syscall table: 0 on success, a negative
// sentinel on failure, new resource ids >= 0.
package api

import (
	"context"
	"sync/atomic"

	"github.com/kolkov/ksync/internal/kernel/ktime"
	"github.com/kolkov/ksync/internal/kernel/prim"
	"github.com/kolkov/ksync/internal/kernel/resource"
	"github.com/kolkov/ksync/internal/kernel/sched"
	"github.com/kolkov/ksync/internal/kernel/trace"
)

// Syscall return codes.
const (
	// CodeSuccess is returned by every operation that completed.
	CodeSuccess int64 = 0

	// CodeWouldDeadlock is returned by mutex_lock and semaphore_down when
	// the safety check finds no task-finishing order. The caller never
	// blocks and is never retried automatically. The value is the
	// sentinel existing callers expect.
	CodeWouldDeadlock int64 = -0xDEAD

	// CodeInvalidArgument is returned for a malformed detection toggle.
	CodeInvalidArgument int64 = -1
)

// Kernel owns the clock and timer queue shared by its processes.
type Kernel struct {
	clock   ktime.Clock
	timer   *ktime.Queue
	nextPID atomic.Int64
}

// NewKernel starts a kernel with the system clock. Callers own its
// lifetime and should Shutdown when done.
func NewKernel() *Kernel {
	clock := ktime.SystemClock()
	return &Kernel{
		clock: clock,
		timer: ktime.NewQueue(clock),
	}
}

// NewProcess creates an empty process on this kernel.
func (k *Kernel) NewProcess() *sched.Process {
	pid := int(k.nextPID.Add(1))
	return sched.NewProcess(pid, k.clock, k.timer)
}

// Shutdown stops the timer queue. Pending sleeps never wake after this.
func (k *Kernel) Shutdown() {
	k.timer.Stop()
}

// Sleep suspends the calling task for at least ms milliseconds. The wake is
// driven by the timer facility, not by another task. Always returns 0.
func Sleep(ctx context.Context, ms int64) int64 {
	t := sched.FromContext(ctx)
	p := t.Proc
	trace.Syscall(p.PID, t.TID, "sys_sleep")

	expire := p.Clock().NowMillis() + ms
	p.Timer().AddTimer(expire, t)
	t.Park()
	return CodeSuccess
}

// MutexCreate installs a new mutex, blocking or spinning per the flag, and
// returns its resource id.
//
// Creation atomically initializes the accounting columns for the new id:
// the process available entry is set to one unit and every live task's
// need/allocation entries are zero-extended, all under the process lock.
func MutexCreate(ctx context.Context, blocking bool) int64 {
	t := sched.FromContext(ctx)
	p := t.Proc
	trace.Syscall(p.PID, t.TID, "sys_mutex_create")

	m := prim.NewMutex(blocking)

	p.Lock()
	defer p.Unlock()
	id := p.Mutexes.Alloc(m)
	initAccounting(p, resource.ClassMutex, id, 1, p.Mutexes.Len())
	return int64(id)
}

// MutexLock acquires the mutex with resource id mutexID on behalf of the
// calling task.
//
// The caller's need entry is incremented before anything else; when
// detection is enabled the safety check then decides whether the request
// may proceed. On refusal the increment is reverted exactly and
// CodeWouldDeadlock is returned without touching the mechanism.
func MutexLock(ctx context.Context, mutexID int) int64 {
	t := sched.FromContext(ctx)
	p := t.Proc
	trace.Syscall(p.PID, t.TID, "sys_mutex_lock")

	p.Lock()
	m := p.Mutexes.Get(mutexID)
	if !requestClassUnit(p, t, resource.ClassMutex, mutexID) {
		p.Unlock()
		trace.Refused(p.PID, t.TID, "sys_mutex_lock", mutexID)
		return CodeWouldDeadlock
	}
	granted := commitIfAvailable(p, t, resource.ClassMutex, mutexID)
	p.Unlock()

	m.Lock(t)
	if !granted {
		settleAfterWake(p, t, resource.ClassMutex, mutexID)
	}
	return CodeSuccess
}

// MutexUnlock releases the mutex with resource id mutexID, returning its
// unit to the available pool before waking the next waiter.
func MutexUnlock(ctx context.Context, mutexID int) int64 {
	t := sched.FromContext(ctx)
	p := t.Proc
	trace.Syscall(p.PID, t.TID, "sys_mutex_unlock")

	p.Lock()
	m := p.Mutexes.Get(mutexID)
	releaseClassUnit(p, t, resource.ClassMutex, mutexID)
	p.Unlock()

	m.Unlock()
	return CodeSuccess
}

// SemaphoreCreate installs a new counting semaphore holding count units and
// returns its resource id. A negative count is rejected.
func SemaphoreCreate(ctx context.Context, count int) int64 {
	t := sched.FromContext(ctx)
	p := t.Proc
	trace.Syscall(p.PID, t.TID, "sys_semaphore_create")

	if count < 0 {
		return CodeInvalidArgument
	}
	s := prim.NewSemaphore(uint(count))

	p.Lock()
	defer p.Unlock()
	id := p.Semaphores.Alloc(s)
	initAccounting(p, resource.ClassSemaphore, id, uint64(count), p.Semaphores.Len())
	return int64(id)
}

// SemaphoreUp releases one unit of the semaphore with resource id semID and
// wakes one waiter if any are parked.
func SemaphoreUp(ctx context.Context, semID int) int64 {
	t := sched.FromContext(ctx)
	p := t.Proc
	trace.Syscall(p.PID, t.TID, "sys_semaphore_up")

	p.Lock()
	s := p.Semaphores.Get(semID)
	releaseClassUnit(p, t, resource.ClassSemaphore, semID)
	p.Unlock()

	s.Up()
	return CodeSuccess
}

// SemaphoreDown consumes one unit of the semaphore with resource id semID,
// suspending the caller when none is free. Subject to the safety check when
// detection is enabled, with the same speculative-increment protocol as
// MutexLock.
func SemaphoreDown(ctx context.Context, semID int) int64 {
	t := sched.FromContext(ctx)
	p := t.Proc
	trace.Syscall(p.PID, t.TID, "sys_semaphore_down")

	p.Lock()
	s := p.Semaphores.Get(semID)
	if !requestClassUnit(p, t, resource.ClassSemaphore, semID) {
		p.Unlock()
		trace.Refused(p.PID, t.TID, "sys_semaphore_down", semID)
		return CodeWouldDeadlock
	}
	granted := commitIfAvailable(p, t, resource.ClassSemaphore, semID)
	p.Unlock()

	s.Down(t)
	if !granted {
		settleAfterWake(p, t, resource.ClassSemaphore, semID)
	}
	return CodeSuccess
}

// CondvarCreate installs a new condition variable and returns its resource
// id. Condition variables carry no accounting columns: they are not covered
// by the deadlock detector.
func CondvarCreate(ctx context.Context) int64 {
	t := sched.FromContext(ctx)
	p := t.Proc
	trace.Syscall(p.PID, t.TID, "sys_condvar_create")

	p.Lock()
	defer p.Unlock()
	return int64(p.Condvars.Alloc(prim.NewCondvar()))
}

// CondvarSignal wakes at most one waiter of the condition variable with
// resource id condvarID.
func CondvarSignal(ctx context.Context, condvarID int) int64 {
	t := sched.FromContext(ctx)
	p := t.Proc
	trace.Syscall(p.PID, t.TID, "sys_condvar_signal")

	p.Lock()
	cv := p.Condvars.Get(condvarID)
	p.Unlock()

	cv.Signal()
	return CodeSuccess
}

// CondvarWait releases the mutex with resource id mutexID, suspends the
// caller until a signal, then reacquires the mutex before returning.
func CondvarWait(ctx context.Context, condvarID, mutexID int) int64 {
	t := sched.FromContext(ctx)
	p := t.Proc
	trace.Syscall(p.PID, t.TID, "sys_condvar_wait")

	p.Lock()
	cv := p.Condvars.Get(condvarID)
	m := p.Mutexes.Get(mutexID)
	p.Unlock()

	cv.Wait(t, m)
	return CodeSuccess
}

// EnableDeadlockDetect toggles the process-wide safety check: 1 enables,
// 0 disables, anything else returns CodeInvalidArgument. Detection is
// advisory and only active while enabled.
func EnableDeadlockDetect(ctx context.Context, flag int) int64 {
	t := sched.FromContext(ctx)
	p := t.Proc
	trace.Syscall(p.PID, t.TID, "sys_enable_deadlock_detect")

	switch flag {
	case 1:
		p.Lock()
		p.DeadlockDetect = true
		p.Unlock()
	case 0:
		p.Lock()
		p.DeadlockDetect = false
		p.Unlock()
	default:
		return CodeInvalidArgument
	}
	return CodeSuccess
}
