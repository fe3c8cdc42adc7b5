// Package banker implements the generalized Banker's-algorithm safety check
// used to veto blocking acquisitions before the caller suspends.
//
// The check is generalized over a resource class: it sees only an available
// vector and each task's need/allocation vectors, so the same code serves
// mutexes and semaphores. Condition variables are deliberately outside its
// scope.
//
// The caller runs a two-phase protocol around Check. Phase 1 speculatively
// increments its own need entry, encoding "pretend the request is granted".
// Phase 2 either commits (need down, allocation up, available down) when the
// state is safe, or reverts exactly the phase-1 increment when it is not.
// Check itself never mutates accounting state: it clones available into a
// private work vector and simulates from there.
package banker

import "github.com/kolkov/ksync/internal/kernel/resource"

// Account is the check's view of one task's accounting for the class under
// test. With runs fn with the task's ledger under the task lock, grown to
// at least n entries; the check holds at most one task lock at a time.
type Account interface {
	With(n int, fn func(l *resource.Ledger))
}

// Result is the outcome of a safety check.
type Result struct {
	// Safe reports whether every task can finish from the analyzed state.
	Safe bool

	// Order lists task indices in the order the simulation finished them.
	// It is a prefix of all tasks when Safe is false. For a fixed input
	// state the order is deterministic, a property tests rely on.
	Order []int
}

// Check runs the classical safety test against available and the tasks'
// ledgers.
//
// work starts as a clone of available. Passes scan tasks in ascending index
// order; the first unfinished task whose whole need vector fits under work
// is finished and its allocation is released into work (first-fit selection,
// no slack heuristics). Scanning stops when a pass makes no progress; the
// state is safe iff every task finished.
func Check(available resource.Vector, tasks []Account) Result {
	n := len(available)
	work := available.Clone()
	finish := make([]bool, len(tasks))
	order := make([]int, 0, len(tasks))

	for {
		progressed := false
		for i, acct := range tasks {
			if finish[i] {
				continue
			}
			canFinish := false
			acct.With(n, func(l *resource.Ledger) {
				if l.Need.CoveredBy(work) {
					canFinish = true
					work.AddVec(l.Allocation)
				}
			})
			if canFinish {
				finish[i] = true
				order = append(order, i)
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	for _, done := range finish {
		if !done {
			return Result{Safe: false, Order: order}
		}
	}
	return Result{Safe: true, Order: order}
}
