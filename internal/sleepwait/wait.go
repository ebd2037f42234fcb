package sleepwait

import "github.com/corvid-os/kernel/internal/proc"

// AddWaiter records waiter as blocked in waitpid(target.PID).
func AddWaiter(target, waiter *proc.Process) {
	target.WaitQueue = append(target.WaitQueue, waiter.PID)
}

// WakeWaiters returns and clears the PIDs blocked in waitpid(target.PID),
// called by task_exit to wake every waiter at once.
func WakeWaiters(target *proc.Process) []proc.PID {
	waiters := target.WaitQueue
	target.WaitQueue = nil
	return waiters
}
