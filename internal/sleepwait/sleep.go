// Package sleepwait is the time-ordered sleeper list woken by clock
// advance, and the waitpid-style rendezvous queue attached to each
// process.
package sleepwait

import "github.com/corvid-os/kernel/internal/proc"

// Time is an absolute wake time expressed as whole ticks (seconds) plus
// sub-ticks, matching spec.md's "sleep_until(proc, seconds, subseconds)".
type Time struct {
	Sec, Sub uint64
}

// Before reports whether t is strictly earlier than other.
func (t Time) Before(other Time) bool {
	if t.Sec != other.Sec {
		return t.Sec < other.Sec
	}
	return t.Sub < other.Sub
}

// AtOrBefore reports whether t is not later than other.
func (t Time) AtOrBefore(other Time) bool {
	return !other.Before(t)
}

type sleeperEntry struct {
	wake Time
	proc *proc.Process
}

// SleeperList is the time-ordered list of sleeping processes. Entries are
// kept sorted by wake time, ties broken by insertion order.
type SleeperList struct {
	entries []sleeperEntry
}

// NewSleeperList creates an empty sleeper list.
func NewSleeperList() *SleeperList { return &SleeperList{} }

// Insert removes p from the ready queue conceptually (the caller is
// responsible for that) and inserts a sleeper record in wake-time order.
func (l *SleeperList) Insert(p *proc.Process, wake Time) {
	if p.Membership != proc.MemberNone {
		panic("sleepwait: process already a member of another queue")
	}
	p.Membership = proc.MemberSleeper

	i := 0
	for i < len(l.entries) && !wake.Before(l.entries[i].wake) {
		i++
	}
	l.entries = append(l.entries, sleeperEntry{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = sleeperEntry{wake: wake, proc: p}
}

// WakeUpTo walks the head of the list while its wake time is at or before
// now, removes each such entry, clears its membership, and returns the
// woken processes in wake-time order (ties in insertion order).
func (l *SleeperList) WakeUpTo(now Time) []*proc.Process {
	i := 0
	for i < len(l.entries) && l.entries[i].wake.AtOrBefore(now) {
		i++
	}
	woken := make([]*proc.Process, i)
	for j := 0; j < i; j++ {
		woken[j] = l.entries[j].proc
		woken[j].Membership = proc.MemberNone
	}
	l.entries = l.entries[i:]
	return woken
}

// Len reports how many processes are currently sleeping.
func (l *SleeperList) Len() int { return len(l.entries) }

// Remove drops p from the sleeper list if present, for a process
// delivered a fatal signal while asleep.
func (l *SleeperList) Remove(p *proc.Process) {
	for i, e := range l.entries {
		if e.proc == p {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			p.Membership = proc.MemberNone
			return
		}
	}
}
