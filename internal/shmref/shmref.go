// Package shmref models the core's view of shared-memory chunks: opaque
// mapping tokens queried and released by the reaper, with no visibility
// into the shared-memory subsystem's own bookkeeping (spec.md §1 marks
// shared memory as an external collaborator).
package shmref

// Mapping is one shared-memory chunk mapped into a process's address
// space above the configured shared-memory boundary.
type Mapping interface {
	Release()
}

// ReleaseAll releases every mapping in the list, for reap time
// (spec.md §6: "shm_release_all(proc) at reap time").
func ReleaseAll(mappings []Mapping) {
	for _, m := range mappings {
		m.Release()
	}
}
