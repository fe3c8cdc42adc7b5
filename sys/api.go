// Package sys is the public facade over internal/kernel/api.
//
// See doc.go for detailed documentation and examples.
package sys

import (
	"context"
	"io"

	internal "github.com/kolkov/ksync/internal/kernel/api"
	"github.com/kolkov/ksync/internal/kernel/sched"
	"github.com/kolkov/ksync/internal/kernel/trace"
)

// Kernel owns the clock and timer queue shared by its processes. Create
// one per test or program and Shutdown it when done.
type Kernel = internal.Kernel

// Process owns the resource tables and task list the syscalls operate on.
// Spawn starts task functions; Join waits for them.
type Process = sched.Process

// Task identifies one thread of control inside a Process. Most callers
// never touch it directly: syscalls find the calling task in the context.
type Task = sched.Task

// Syscall return codes.
const (
	// CodeSuccess means the operation completed.
	CodeSuccess = internal.CodeSuccess

	// CodeWouldDeadlock means the safety check found no order in which
	// every task could finish, and the acquisition was refused before
	// the caller blocked.
	CodeWouldDeadlock = internal.CodeWouldDeadlock

	// CodeInvalidArgument means the detection toggle received a flag
	// other than 0 or 1.
	CodeInvalidArgument = internal.CodeInvalidArgument
)

// NewKernel starts a kernel with the system clock.
func NewKernel() *Kernel {
	return internal.NewKernel()
}

// EnableTrace routes per-syscall kernel trace lines to w; nil disables.
func EnableTrace(w io.Writer) {
	trace.Enable(w)
}

// Sleep suspends the calling task for at least ms milliseconds, woken by
// the timer facility. Returns 0 after the wake.
func Sleep(ctx context.Context, ms int64) int64 {
	return internal.Sleep(ctx, ms)
}

// MutexCreate creates a mutex (blocking when blocking is true, spinning
// otherwise) and returns its resource id.
func MutexCreate(ctx context.Context, blocking bool) int64 {
	return internal.MutexCreate(ctx, blocking)
}

// MutexLock acquires the mutex with the given resource id, returning 0 on
// success or CodeWouldDeadlock if the detector refuses.
func MutexLock(ctx context.Context, mutexID int) int64 {
	return internal.MutexLock(ctx, mutexID)
}

// MutexUnlock releases the mutex with the given resource id.
func MutexUnlock(ctx context.Context, mutexID int) int64 {
	return internal.MutexUnlock(ctx, mutexID)
}

// SemaphoreCreate creates a counting semaphore with the given initial count
// and returns its resource id.
func SemaphoreCreate(ctx context.Context, count int) int64 {
	return internal.SemaphoreCreate(ctx, count)
}

// SemaphoreUp releases one semaphore unit, waking one waiter if any are
// blocked.
func SemaphoreUp(ctx context.Context, semID int) int64 {
	return internal.SemaphoreUp(ctx, semID)
}

// SemaphoreDown consumes one semaphore unit, suspending the caller until a
// matching SemaphoreUp when none is free. Returns 0 on success or
// CodeWouldDeadlock if the detector refuses.
func SemaphoreDown(ctx context.Context, semID int) int64 {
	return internal.SemaphoreDown(ctx, semID)
}

// CondvarCreate creates a condition variable and returns its resource id.
func CondvarCreate(ctx context.Context) int64 {
	return internal.CondvarCreate(ctx)
}

// CondvarSignal wakes at most one waiter of the condition variable.
func CondvarSignal(ctx context.Context, condvarID int) int64 {
	return internal.CondvarSignal(ctx, condvarID)
}

// CondvarWait atomically releases the mutex and suspends the caller until a
// signal, then reacquires the mutex before returning.
func CondvarWait(ctx context.Context, condvarID, mutexID int) int64 {
	return internal.CondvarWait(ctx, condvarID, mutexID)
}

// EnableDeadlockDetect toggles the process-wide safety check: 1 enables,
// 0 disables. Any other flag returns CodeInvalidArgument.
func EnableDeadlockDetect(ctx context.Context, flag int) int64 {
	return internal.EnableDeadlockDetect(ctx, flag)
}
