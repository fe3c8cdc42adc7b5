package resource

import "fmt"

// Table is a per-process id-to-instance table for one kind of primitive.
//
// Ids are small integers, stable for the lifetime of the resource. Alloc
// always prefers the lowest vacant slot over appending, so ids are assigned
// first-fit and a vacated slot is reused by the next creation. The syscall
// layer guards each table with the process exclusive-access lock; Table
// itself is not safe for concurrent use.
type Table[T any] struct {
	slots []T
	inUse []bool
}

// Alloc installs v into the lowest free slot, or appends when none is free,
// and returns the slot index as the new resource id.
func (tb *Table[T]) Alloc(v T) int {
	for id, used := range tb.inUse {
		if !used {
			tb.slots[id] = v
			tb.inUse[id] = true
			return id
		}
	}
	tb.slots = append(tb.slots, v)
	tb.inUse = append(tb.inUse, true)
	return len(tb.slots) - 1
}

// Get returns the instance at id.
//
// An out-of-range or vacant id is a kernel-internal fault: resource ids only
// reach the syscall layer from earlier Alloc calls, so a bad id means the
// caller's bookkeeping is corrupt.
func (tb *Table[T]) Get(id int) T {
	if id < 0 || id >= len(tb.slots) || !tb.inUse[id] {
		panic(fmt.Sprintf("resource: no entry for id %d (table length %d)", id, len(tb.slots)))
	}
	return tb.slots[id]
}

// Free vacates the slot at id, making it eligible for first-fit reuse.
//
// No syscall exposes destruction; Free exists so the allocator's reuse
// contract stays exercised and honored if a teardown path is added.
func (tb *Table[T]) Free(id int) {
	if id < 0 || id >= len(tb.slots) || !tb.inUse[id] {
		panic(fmt.Sprintf("resource: freeing vacant id %d", id))
	}
	var zero T
	tb.slots[id] = zero
	tb.inUse[id] = false
}

// Len returns the table length including vacant slots. This is the
// authoritative capacity for the class's accounting vectors.
func (tb *Table[T]) Len() int {
	return len(tb.slots)
}
