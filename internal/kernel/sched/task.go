// Package sched provides the task and process model the sync syscalls run
// against.
//
// Scheduling is cooperative and goroutine-backed: each task is a goroutine,
// "suspend and switch to the next runnable task" is parking on the task's
// wake channel (the Go scheduler picks what runs next), and "wake" is a
// non-blocking token send. The wake channel holds one buffered token so a
// wake that races the suspension is retained rather than lost.
//
// Lock ordering is strict: the process exclusive-access lock is acquired
// before any task lock, at most one task lock is held at a time, and every
// lock is released before a mechanism call that can park the task.
package sched

import (
	"context"
	"sync"

	"github.com/kolkov/ksync/internal/kernel/resource"
)

// Task is one thread of control inside a Process.
//
// The task owns one accounting Ledger per resource class, guarded by the
// task's exclusive-access lock. Tids are assigned ascending and equal the
// task's index in the process task list, which is the scan order the
// deadlock detector relies on.
type Task struct {
	// TID is the task id, equal to the task's slot in Process.tasks.
	// Immutable.
	TID int

	// Proc is the owning process. Immutable.
	Proc *Process

	mu      sync.Mutex
	ledgers [resource.NumClasses]resource.Ledger

	wake chan struct{}
}

// Park suspends the calling task until a wake token arrives. This is the
// single suspension point used by every blocking mechanism and the timer.
func (t *Task) Park() {
	<-t.wake
}

// Unpark delivers one wake token without blocking. A token sent before the
// task parks is retained; extra tokens beyond the one buffered slot are
// dropped, which is safe because a task waits on at most one thing at a
// time.
func (t *Task) Unpark() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// WithLedger runs fn with the task's ledger for class c under the task
// lock, after growing the ledger to at least n entries.
//
// n is normally the class table length, the authoritative capacity: growth
// here is how tasks that predate a resource gain its (zero) accounting
// entries.
func (t *Task) WithLedger(c resource.Class, n int, fn func(l *resource.Ledger)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l := &t.ledgers[c]
	l.EnsureLen(n)
	fn(l)
}

// LedgerSnapshot returns a deep copy of the task's ledger for class c,
// taken under the task lock. Used by tests and the simulator report.
func (t *Task) LedgerSnapshot(c resource.Class) resource.Ledger {
	var snap resource.Ledger
	t.WithLedger(c, 0, func(l *resource.Ledger) {
		snap = l.Clone()
	})
	return snap
}

type taskContextKey struct{}

// WithTask returns a context carrying t. Process.Spawn attaches the task to
// the context each task function receives; syscalls recover it with
// FromContext.
func WithTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, taskContextKey{}, t)
}

// FromContext returns the task attached to ctx.
//
// Syscalls are only reachable from a running task's goroutine, so a context
// without one is a kernel-internal fault.
func FromContext(ctx context.Context) *Task {
	t, ok := ctx.Value(taskContextKey{}).(*Task)
	if !ok {
		panic("sched: context does not carry a task")
	}
	return t
}
