package kernel

import (
	"github.com/corvid-os/kernel/internal/proc"
	"github.com/corvid-os/kernel/internal/shmref"
	"github.com/corvid-os/kernel/internal/sigqueue"
	"github.com/corvid-os/kernel/internal/sleepwait"
)

// SwitchNext is the scheduler dispatch: it drains the reap queue, requeues
// the outgoing process if it is still runnable, and pops the next ready
// process — dispatching any signal queued against it first, terminating
// it immediately and trying the next one if that signal has no handler.
// It returns nil if no process is runnable (idle).
//
// spec.md's switch_task/switch_next pair is a single suspend/resume point
// that the interrupted process's own "resuming" branch re-enters later to
// run its post-switch housekeeping (reap-queue drain, signal dispatch).
// Because this module does not model CPU suspension (see internal/spawn's
// doc comment and DESIGN.md), that housekeeping has nowhere else to live
// than here, run eagerly for whichever process SwitchNext is about to
// dispatch rather than lazily on its own resuming branch.
func (c *Context) SwitchNext() *proc.Process {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.Reap.DrainAll() {
		c.reapLocked(p)
	}

	if c.Current != nil && !c.Current.Finished && c.Current.Membership == proc.MemberNone {
		c.Ready.PushBack(c.Current)
	}

	for {
		next := c.Ready.PopFront()
		if next == nil {
			c.Current = nil
			return nil
		}

		outcome, sig := sigqueue.Dispatch(next)
		if outcome == sigqueue.OutcomeDefaultTerminate {
			c.exitLocked(next, sig)
			continue
		}

		c.Current = next
		c.log.WithField("pid", next.PID).Debug("scheduled")
		return next
	}
}

// TickTimer advances the context's logical clock to now and moves every
// sleeper whose wake time has arrived onto the ready queue.
func (c *Context) TickTimer(now sleepwait.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock = now
	for _, p := range c.Sleepers.WakeUpTo(now) {
		c.Ready.PushBack(p)
	}
}

// TaskExit marks p finished with the given exit status, wakes every
// waiter blocked in waitpid(p.PID), and queues p for the reaper. If p is
// the current process, the caller must call SwitchNext next to pick a
// replacement.
func (c *Context) TaskExit(p *proc.Process, status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exitLocked(p, status)
}

func (c *Context) exitLocked(p *proc.Process, status int) {
	switch p.Membership {
	case proc.MemberReady:
		c.Ready.Remove(p)
	case proc.MemberSleeper:
		c.Sleepers.Remove(p)
	}

	p.Status = byte(status)
	p.Finished = true
	if c.Current == p {
		c.Current = nil
	}

	for _, wpid := range sleepwait.WakeWaiters(p) {
		if w, ok := c.Table.FromPID(wpid); ok && !w.Finished && w.Membership == proc.MemberNone {
			c.Ready.PushBack(w)
		}
	}

	c.Reap.Push(p)
	c.log.WithFields(map[string]interface{}{"pid": p.PID, "status": status}).Info("process exited")
}

// reapLocked frees every resource a finished process still holds:
// descriptor table (if this was the last reference), shared-memory
// mappings, and the address space, then removes it from the process
// table — spec.md §3's "finally the reaper frees its queues, descriptor
// table (if last reference), page directory (if last reference), kernel
// stack, and descriptor, then marks it reaped."
func (c *Context) reapLocked(p *proc.Process) {
	if p.FDs != nil && p.FDs.ReleaseRef() {
		p.FDs.Close()
	}
	shmref.ReleaseAll(p.ShmMappings)
	if p.Thread.Directory != nil {
		p.Thread.Directory.Release()
	}
	p.KStack = nil
	p.AltKStack = nil

	c.Table.Delete(p)
	c.log.WithField("pid", p.PID).Debug("reaped")
}
