// Package resource implements the per-process resource tables and the
// need/allocation/available accounting vectors that back deadlock avoidance.
//
// Every mutex and semaphore created by a process occupies one slot in a
// class-specific table; the slot index is the resource id. In parallel,
// every task carries one Ledger per resource class whose vectors are indexed
// by the same ids, and the process carries one available vector per class.
// The safety check (package banker) operates purely on these vectors.
//
// Vector lengths are kept aligned with the corresponding table by lazy
// growth: the table length is the single authoritative capacity, and every
// ledger is extended to at least that length before it is read or written.
package resource

import "fmt"

// Class identifies a resource class tracked by the deadlock detector.
//
// Condition variables are deliberately not a Class: they are not covered by
// the safety check (see package banker).
type Class int

const (
	// ClassMutex covers both spin and blocking mutexes. Entries in the
	// accounting vectors for this class are binary: a mutex is one unit.
	ClassMutex Class = iota

	// ClassSemaphore covers counting semaphores. Entries are unsigned
	// unit counts, with the starting capacity set at creation.
	ClassSemaphore

	// NumClasses is the number of deadlock-tracked resource classes.
	NumClasses
)

// String returns the class name used in trace output.
func (c Class) String() string {
	switch c {
	case ClassMutex:
		return "mutex"
	case ClassSemaphore:
		return "semaphore"
	default:
		return "unknown"
	}
}

// Vector is a growable sequence of unsigned resource counters indexed by
// resource id.
//
// All arithmetic is checked: an underflow means a commit/rollback pair was
// broken somewhere and is treated as a fatal kernel fault, not an error
// return. Missing indices read as zero; Grow extends with explicit zeros so
// that parallel vectors across tasks stay index-aligned.
type Vector []uint64

// Grow extends the vector with zeros until it has at least n entries.
// It never shrinks.
func (v *Vector) Grow(n int) {
	for len(*v) < n {
		*v = append(*v, 0)
	}
}

// Get returns the counter at index i, or zero when the vector has not yet
// grown that far.
func (v Vector) Get(i int) uint64 {
	if i < 0 {
		panic(fmt.Sprintf("resource: negative index %d", i))
	}
	if i >= len(v) {
		return 0
	}
	return v[i]
}

// Set stores value at index i, growing the vector as needed.
func (v *Vector) Set(i int, value uint64) {
	v.Grow(i + 1)
	(*v)[i] = value
}

// Add increments the counter at index i by delta, growing as needed.
func (v *Vector) Add(i int, delta uint64) {
	v.Grow(i + 1)
	(*v)[i] += delta
}

// Sub decrements the counter at index i by delta.
//
// Underflow panics: the syscall layer pairs every speculative increment with
// exactly one commit or rollback, so a counter going negative can only mean
// that pairing was violated.
func (v *Vector) Sub(i int, delta uint64) {
	v.Grow(i + 1)
	if (*v)[i] < delta {
		panic(fmt.Sprintf("resource: counter underflow at id %d (%d - %d)", i, (*v)[i], delta))
	}
	(*v)[i] -= delta
}

// Clone returns an independent copy of the vector.
//
// The safety check clones the available vector into its work vector so the
// simulation never touches live accounting state.
func (v Vector) Clone() Vector {
	clone := make(Vector, len(v))
	copy(clone, v)
	return clone
}

// CoveredBy reports whether v[i] <= work[i] for every index of v, treating
// missing work entries as zero.
//
// This is the component-wise "can this task's remaining need be satisfied"
// test at the heart of the Banker's algorithm.
func (v Vector) CoveredBy(work Vector) bool {
	for i, n := range v {
		if n > work.Get(i) {
			return false
		}
	}
	return true
}

// AddVec adds every entry of other into v, growing v as needed.
//
// The safety check uses this to simulate a finished task releasing its
// whole allocation back into the work vector.
func (v *Vector) AddVec(other Vector) {
	v.Grow(len(other))
	for i, n := range other {
		(*v)[i] += n
	}
}

// Sum returns the total of all counters. Used by invariant checks in tests.
func (v Vector) Sum() uint64 {
	var total uint64
	for _, n := range v {
		total += n
	}
	return total
}
