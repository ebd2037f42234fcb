// Package vfsref models the core's view of the file-descriptor table: a
// reference-counted, growable array of opaque handles. The VFS and the
// concrete file implementation are out of scope for this module (spec.md
// §1); the core only ever acquires/releases references and assigns
// indices, which is exactly the surface Handle exposes.
package vfsref

// Handle is an opaque, reference-counted file handle. The concrete
// implementation (a VFS node, a pipe endpoint, a socket) lives outside
// this module; the core never inspects it beyond Acquire/Release.
type Handle interface {
	Acquire()
	Release()
}

// Table is a process's descriptor table: a growable array of handles
// shared by reference count between a parent and every child spawned from
// it, by fork and clone alike (spec.md §4.4 / §4.6).
type Table struct {
	entries []Handle
	refs    int
}

// NewTable creates an empty descriptor table with one reference (the
// process that owns it).
func NewTable() *Table {
	return &Table{refs: 1}
}

// Retain increments the table's reference count, for a spawned child
// (forked process or cloned thread) that shares its parent's table.
func (t *Table) Retain() { t.refs++ }

// ReleaseRef decrements the table's reference count and reports whether
// this was the last reference (the caller must then release every handle
// and discard the table).
func (t *Table) ReleaseRef() bool {
	t.refs--
	if t.refs < 0 {
		panic("vfsref: table reference count went negative")
	}
	return t.refs == 0
}

// Refs reports the table's current reference count.
func (t *Table) Refs() int { return t.refs }

// Append grows the descriptor table (doubling capacity on overflow),
// installs node at the first hole or at the end, and returns its index.
func (t *Table) Append(h Handle) int {
	for i, e := range t.entries {
		if e == nil {
			t.entries[i] = h
			return i
		}
	}
	t.entries = append(t.entries, h)
	return len(t.entries) - 1
}

// Get returns the handle at index i, or nil if the slot is empty or out
// of range.
func (t *Table) Get(i int) Handle {
	if i < 0 || i >= len(t.entries) {
		return nil
	}
	return t.entries[i]
}

// Move replaces slot dest with the entry at src, adjusting references:
// dest's prior occupant (if any) is released, src's handle gains no new
// reference (the table itself doesn't own references on individual
// handles beyond holding the pointer), and src is cleared. Moving a slot
// onto itself is a no-op.
func (t *Table) Move(src, dest int) {
	if src < 0 || src >= len(t.entries) || src == dest {
		return
	}
	for dest >= len(t.entries) {
		t.entries = append(t.entries, nil)
	}
	if t.entries[dest] != nil {
		t.entries[dest].Release()
	}
	t.entries[dest] = t.entries[src]
	t.entries[src] = nil
}

// Close releases every live handle in the table, for reap time when this
// was the last reference.
func (t *Table) Close() {
	for i, e := range t.entries {
		if e != nil {
			e.Release()
			t.entries[i] = nil
		}
	}
}
