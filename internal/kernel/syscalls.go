package kernel

import (
	"github.com/corvid-os/kernel/internal/ipc"
	"github.com/corvid-os/kernel/internal/proc"
	"github.com/corvid-os/kernel/internal/sigqueue"
	"github.com/corvid-os/kernel/internal/sleepwait"
	"github.com/corvid-os/kernel/internal/spawn"
)

// Fork duplicates parent's address space and kernel stack into a fresh,
// ready-to-run child process and returns it (the PID the parent's fork()
// syscall observes). Held under mu, matching spec.md §5's "interrupts
// masked... fork/clone's stack copy."
func (c *Context) Fork(parent *proc.Process) (*proc.Process, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	child, err := spawn.Fork(c.Table, c.Ready, parent)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(map[string]interface{}{"parent": parent.PID, "child": child.PID}).Info("fork")
	return child, nil
}

// CloneThread shares parent's address space with a fresh thread that
// begins executing entry(arg) on the supplied user stack.
func (c *Context) CloneThread(parent *proc.Process, userStack, entry uintptr, arg uint32) (*proc.Process, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	child, err := spawn.Clone(c.Table, c.Ready, c.Mem, parent, userStack, entry, arg)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(map[string]interface{}{"parent": parent.PID, "thread": child.PID}).Info("clone")
	return child, nil
}

// Send implements the send(pid, msg) syscall: delivers directly to a
// receiving target, or blocks me on the target's sender queue.
func (c *Context) Send(me, target *proc.Process, body []byte) (delivered bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delivered = ipc.Send(c.Ready, c.Outbox, me, target, body)
	c.log.WithFields(map[string]interface{}{"from": me.PID, "to": target.PID, "delivered": delivered}).Debug("send")
	return delivered
}

// Recv implements the recv(from_pid) syscall: returns a queued sender's
// message immediately, or blocks me as receiving.
func (c *Context) Recv(me *proc.Process, from proc.PID) (ipc.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ipc.Recv(c.Ready, c.Outbox, c.Lookup, me, from)
}

// SleepUntil implements sleep(s, us): removes p from the ready queue
// (conceptually — the caller must not also hold it there) and inserts it
// into the sleeper list to wake at the given absolute time.
func (c *Context) SleepUntil(p *proc.Process, wake sleepwait.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Sleepers.Insert(p, wake)
}

// Kill implements kill(pid, sig): queues sig against target and, if
// target is blocked (sleeping, or parked mid-rendezvous in send/recv),
// pulls it back onto the ready queue so the pending signal is dispatched
// on its next turn rather than left to block forever. IPC blocking isn't
// tracked through Membership (send/recv's queues are per-target, not one
// of the four collections that invariant covers), so it's read off
// SendingOrReceiving instead.
func (c *Context) Kill(target *proc.Process, sig int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sigqueue.Enqueue(target, sig)

	if target.Membership == proc.MemberSleeper {
		c.Sleepers.Remove(target)
		c.Ready.PushBack(target)
		return
	}

	if target.SendingOrReceiving != proc.Running {
		if target.SendingOrReceiving == proc.Sending {
			if dst, ok := c.Table.FromPID(target.SendTo); ok {
				dst.SenderQueue = removePID(dst.SenderQueue, target.PID)
			}
		}
		target.SendingOrReceiving = proc.Running
		if target.Membership == proc.MemberNone && !target.Finished {
			c.Ready.PushBack(target)
		}
		return
	}

	if target.Membership == proc.MemberNone && !target.Finished && target != c.Current {
		c.Ready.PushBack(target)
	}
}

// removePID returns pids with the first occurrence of victim removed.
func removePID(pids []proc.PID, victim proc.PID) []proc.PID {
	for i, pid := range pids {
		if pid == victim {
			return append(pids[:i], pids[i+1:]...)
		}
	}
	return pids
}

// InstallHeap records the boot-time placement pointer as the start of the
// kernel heap region and switches kmalloc_real into the heap phase. It
// must run once, after boot has finished placement-allocating the
// structures that live below the heap (spec.md §4.3).
func (c *Context) InstallHeap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Heap.Install()
}

// Sbrk implements sbrk(n): grows the kernel heap by n bytes.
func (c *Context) Sbrk(n uintptr) uintptr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Heap.Sbrk(n)
}

// Getpid returns the current process's PID, or proc.NoTask if idle.
func (c *Context) Getpid() proc.PID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Current == nil {
		return proc.NoTask
	}
	return c.Current.PID
}
