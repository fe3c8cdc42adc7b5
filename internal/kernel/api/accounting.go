package api

import (
	"github.com/kolkov/ksync/internal/kernel/banker"
	"github.com/kolkov/ksync/internal/kernel/resource"
	"github.com/kolkov/ksync/internal/kernel/sched"
)

// classTableLen returns the authoritative capacity for class c. Caller
// holds the process lock.
func classTableLen(p *sched.Process, c resource.Class) int {
	switch c {
	case resource.ClassMutex:
		return p.Mutexes.Len()
	case resource.ClassSemaphore:
		return p.Semaphores.Len()
	default:
		panic("api: class has no resource table")
	}
}

// initAccounting performs the creation side effect for a new resource id:
// the process available entry is set to the starting capacity and every
// live task's ledger is zero-extended to the new table length. Caller holds
// the process lock, making the side effect atomic with table insertion.
func initAccounting(p *sched.Process, c resource.Class, id int, units uint64, tableLen int) {
	p.Available[c].Set(id, units)
	for _, task := range p.Tasks() {
		task.WithLedger(c, tableLen, func(*resource.Ledger) {})
	}
}

// taskAccount adapts one task's ledger for a class to the detector's
// Account interface.
type taskAccount struct {
	t *sched.Task
	c resource.Class
}

func (a taskAccount) With(n int, fn func(l *resource.Ledger)) {
	a.t.WithLedger(a.c, n, fn)
}

func classAccounts(p *sched.Process, c resource.Class) []banker.Account {
	tasks := p.Tasks()
	out := make([]banker.Account, len(tasks))
	for i, t := range tasks {
		out[i] = taskAccount{t: t, c: c}
	}
	return out
}

// requestClassUnit is phase 1 of the acquisition protocol: record one unit
// of speculative need for id, then, when detection is enabled, run the
// safety check against every task in the process.
//
// Returns false when the check vetoes the request, in which case the
// speculative increment has already been reverted and accounting is exactly
// as before the call. The bookkeeping increment happens even with detection
// disabled so the accounting stays introspectable. Caller holds the process
// lock.
func requestClassUnit(p *sched.Process, t *sched.Task, c resource.Class, id int) bool {
	n := classTableLen(p, c)
	t.WithLedger(c, n, func(l *resource.Ledger) {
		l.Need.Add(id, 1)
	})

	if !p.DeadlockDetect {
		return true
	}
	if banker.Check(p.Available[c], classAccounts(p, c)).Safe {
		return true
	}

	// Unsafe: revert exactly the speculative increment.
	t.WithLedger(c, n, func(l *resource.Ledger) {
		l.Need.Sub(id, 1)
	})
	return false
}

// commitIfAvailable is phase 2 of the acquisition protocol: when a unit of
// id is logically free, move the caller's speculative need into allocation
// and take the unit from the available pool.
//
// When no unit is free the grant stays pending (need remains recorded) and
// the caller resolves real contention in the mechanism; see
// settleAfterWake. Caller holds the process lock.
func commitIfAvailable(p *sched.Process, t *sched.Task, c resource.Class, id int) bool {
	if p.Available[c].Get(id) == 0 {
		return false
	}
	t.WithLedger(c, classTableLen(p, c), func(l *resource.Ledger) {
		l.Need.Sub(id, 1)
		l.Allocation.Add(id, 1)
	})
	p.Available[c].Sub(id, 1)
	return true
}

// settleAfterWake completes a grant that was still pending when the caller
// entered the mechanism. By the time the mechanism hands the unit over, the
// releasing task has already returned it to the available pool, so the
// pending need can normally be converted to an allocation here.
//
// If another task committed that unit on paper in the meantime, the books
// are left alone: the caller keeps its need recorded and the paper holder
// keeps the allocation, the transient disagreement the optimistic-grant
// policy permits. The release path settles such stragglers.
func settleAfterWake(p *sched.Process, t *sched.Task, c resource.Class, id int) {
	p.Lock()
	defer p.Unlock()
	commitIfAvailable(p, t, c, id)
}

// releaseClassUnit is the release-path bookkeeping for unlock and up.
//
// The normal case returns one allocated unit to the available pool. A task
// that holds the resource physically but never settled on paper instead
// clears its pending need; its unit's paper owner is whichever task
// committed it. Releasing a resource the task neither holds nor awaits is a
// fatal fault. Caller holds the process lock.
func releaseClassUnit(p *sched.Process, t *sched.Task, c resource.Class, id int) {
	t.WithLedger(c, classTableLen(p, c), func(l *resource.Ledger) {
		switch {
		case l.Allocation.Get(id) > 0:
			l.Allocation.Sub(id, 1)
			p.Available[c].Add(id, 1)
		case l.Need.Get(id) > 0:
			l.Need.Sub(id, 1)
		default:
			panic("api: release without matching acquisition")
		}
	})
}
