// Package sched holds the scheduler's queues: the strict FIFO ready queue
// and the reap queue of processes that have finished but not yet been
// freed. The dispatch algorithm itself (switch_task/switch_next) lives in
// the kernel package, which is the one place every subsystem is wired
// together (spec.md §9 design note: "encapsulate them in a single
// kernel-wide context passed explicitly").
package sched

import "github.com/corvid-os/kernel/internal/proc"

// ReadyQueue is a slice-backed FIFO of runnable processes. A process
// re-queued by preemption lands at the tail, same as a newly spawned one.
type ReadyQueue struct {
	items []*proc.Process
}

// NewReadyQueue creates an empty ready queue.
func NewReadyQueue() *ReadyQueue { return &ReadyQueue{} }

// PushBack appends p to the tail of the ready queue and marks its
// membership, panicking if p is already a member of a mutually exclusive
// queue (spec.md §8 invariant).
func (q *ReadyQueue) PushBack(p *proc.Process) {
	if p.Membership != proc.MemberNone {
		panic("sched: process already a member of another queue")
	}
	p.Membership = proc.MemberReady
	q.items = append(q.items, p)
}

// PopFront removes and returns the head of the ready queue, or nil if it
// is empty.
func (q *ReadyQueue) PopFront() *proc.Process {
	if len(q.items) == 0 {
		return nil
	}
	p := q.items[0]
	q.items = q.items[1:]
	p.Membership = proc.MemberNone
	return p
}

// Len reports the number of processes currently ready to run.
func (q *ReadyQueue) Len() int { return len(q.items) }

// Remove drops p from the ready queue if present, used when a process
// delivered a fatal signal must be pulled out before its turn comes
// (spec.md §5: "queued wakeups... discarded by the reaper").
func (q *ReadyQueue) Remove(p *proc.Process) {
	for i, item := range q.items {
		if item == p {
			q.items = append(q.items[:i], q.items[i+1:]...)
			p.Membership = proc.MemberNone
			return
		}
	}
}

// ReapQueue holds processes marked finished but not yet freed.
type ReapQueue struct {
	items []*proc.Process
}

// NewReapQueue creates an empty reap queue.
func NewReapQueue() *ReapQueue { return &ReapQueue{} }

// Push appends p to the reap queue.
func (q *ReapQueue) Push(p *proc.Process) {
	q.items = append(q.items, p)
}

// DrainAll removes and returns every process currently queued for
// reaping, in FIFO order.
func (q *ReapQueue) DrainAll() []*proc.Process {
	out := q.items
	q.items = nil
	return out
}

// Len reports how many processes are awaiting reap.
func (q *ReapQueue) Len() int { return len(q.items) }
