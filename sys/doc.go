// Package sys provides the public syscall surface of the ksync kernel:
// process-local mutexes, counting semaphores, condition variables, sleep,
// and an online deadlock detector that can veto a blocking acquisition
// before the calling task suspends.
//
// # Quick Start
//
//	k := sys.NewKernel()
//	defer k.Shutdown()
//
//	p := k.NewProcess()
//	p.Spawn(func(ctx context.Context) {
//		sys.EnableDeadlockDetect(ctx, 1)
//		id := int(sys.MutexCreate(ctx, true))
//		if sys.MutexLock(ctx, id) == sys.CodeWouldDeadlock {
//			// the safety check refused; the task never blocked
//			return
//		}
//		defer sys.MutexUnlock(ctx, id)
//		// critical section
//	})
//	p.Join()
//
// # Model
//
// Tasks are cooperative: each one is a goroutine spawned on a Process, and
// a blocked task stays suspended until another task's matching release, a
// condition-variable signal, or a timer wakeup. The context passed to the
// task function identifies the calling task to every syscall, so syscalls
// are only meaningful inside a task function.
//
// # Deadlock avoidance
//
// When detection is enabled for a process, MutexLock and SemaphoreDown run
// a generalized Banker's-algorithm safety check before the caller is
// allowed to block. The check pretends the request is granted, then asks
// whether every task in the process can still finish; if not, the request
// is refused with CodeWouldDeadlock and the caller never suspends. The
// refusal is advisory: nothing is retried automatically, and with detection
// disabled the same workload simply blocks.
//
// Condition variables are not covered by the detector: only countable
// resource units (mutexes, semaphore permits) enter the safety state.
//
// # Return convention
//
// Every syscall returns 0 on success and a negative sentinel on failure:
// CodeWouldDeadlock for a vetoed acquisition, CodeInvalidArgument for a
// malformed detection toggle. Creation syscalls return the new resource id,
// always >= 0. Malformed resource ids indicate caller bookkeeping
// corruption and panic rather than returning an error.
package sys
