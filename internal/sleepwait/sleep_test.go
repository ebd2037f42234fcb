package sleepwait

import (
	"testing"

	"github.com/corvid-os/kernel/internal/proc"
	"github.com/stretchr/testify/assert"
)

// TestSleepOrderingScenario mirrors spec.md §8 scenario 4: three processes
// sleep until 100, 50, 75; advancing the clock wakes them in wake-time
// order.
func TestSleepOrderingScenario(t *testing.T) {
	l := NewSleeperList()
	p100 := &proc.Process{PID: 1}
	p50 := &proc.Process{PID: 2}
	p75 := &proc.Process{PID: 3}

	l.Insert(p100, Time{Sec: 100})
	l.Insert(p50, Time{Sec: 50})
	l.Insert(p75, Time{Sec: 75})

	woken := l.WakeUpTo(Time{Sec: 60})
	assert.Equal(t, []*proc.Process{p50}, woken)
	assert.Equal(t, proc.MemberNone, p50.Membership)

	woken = l.WakeUpTo(Time{Sec: 80})
	assert.Equal(t, []*proc.Process{p75}, woken)

	woken = l.WakeUpTo(Time{Sec: 110})
	assert.Equal(t, []*proc.Process{p100}, woken)

	assert.Equal(t, 0, l.Len())
}

func TestSleepTiesBrokenByInsertionOrder(t *testing.T) {
	l := NewSleeperList()
	first := &proc.Process{PID: 1}
	second := &proc.Process{PID: 2}
	l.Insert(first, Time{Sec: 10})
	l.Insert(second, Time{Sec: 10})

	woken := l.WakeUpTo(Time{Sec: 10})
	assert.Equal(t, []*proc.Process{first, second}, woken)
}

func TestWaitQueueWakesAllWaitersAtOnce(t *testing.T) {
	target := &proc.Process{PID: 7}
	w1 := &proc.Process{PID: 4}
	w2 := &proc.Process{PID: 5}
	AddWaiter(target, w1)
	AddWaiter(target, w2)

	woken := WakeWaiters(target)
	assert.Equal(t, []proc.PID{4, 5}, woken)
	assert.Empty(t, target.WaitQueue)
}
