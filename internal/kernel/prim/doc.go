// Package prim implements the blocking mechanisms behind the sync syscalls:
// spin and blocking mutexes, counting semaphores, and condition variables.
//
// This is the mechanism layer. It knows nothing about resource tables or
// deadlock avoidance; it only parks and unparks tasks. The syscall layer
// (internal/kernel/api) decides whether a mechanism may be entered at all,
// and it releases every bookkeeping guard before calling in here, because
// any of these operations may suspend the caller.
//
// Tasks reach this package through the small Task interface so the
// mechanisms stay independent of the scheduler implementation.
package prim
