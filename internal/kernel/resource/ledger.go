package resource

// Ledger is one task's accounting view of a single resource class.
//
// Need counts units the task has requested but not yet been granted;
// Allocation counts units it currently holds. Both vectors are indexed by
// resource id and grown in lockstep, so a Ledger that has been extended to
// the class capacity always has Need and Allocation of equal length.
//
// A Ledger is owned by its task and guarded by the task's exclusive-access
// lock; see sched.Task.WithLedger.
type Ledger struct {
	Need       Vector
	Allocation Vector
}

// EnsureLen extends both vectors with zeros to at least n entries.
//
// Called before every read or write so that a resource created after the
// task came to life still has a (zero) entry in the task's vectors.
func (l *Ledger) EnsureLen(n int) {
	l.Need.Grow(n)
	l.Allocation.Grow(n)
}

// Clone returns an independent deep copy. Tests use it to snapshot a
// ledger before an operation and diff afterwards.
func (l *Ledger) Clone() Ledger {
	return Ledger{
		Need:       l.Need.Clone(),
		Allocation: l.Allocation.Clone(),
	}
}
