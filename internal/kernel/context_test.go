package kernel

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-os/kernel/internal/proc"
	"github.com/corvid-os/kernel/internal/sleepwait"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	c, err := NewContext(Config{
		Frames:         1024,
		SharedBoundary: 768,
		KernelImageEnd: 0x100000,
		HeapCeiling:    0x10000000,
	}, log)
	require.NoError(t, err)
	return c
}

// TestIPCRendezvousRecvFirst mirrors spec.md §8 scenario 5: A calls
// recv(any) then B calls send(A, m). B must never block and A resumes
// with msg == m.
func TestIPCRendezvousRecvFirst(t *testing.T) {
	c := newTestContext(t)
	a, err := c.Fork(c.Current)
	require.NoError(t, err)
	b, err := c.Fork(c.Current)
	require.NoError(t, err)
	c.Ready.PopFront()
	c.Ready.PopFront()

	_, ok := c.Recv(a, proc.Any)
	assert.False(t, ok)

	delivered := c.Send(b, a, []byte("hello"))
	assert.True(t, delivered, "B must never block")

	msg, ok := c.Recv(a, proc.Any)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), msg.Body)
	assert.Equal(t, b.PID, msg.From)
}

// TestIPCRendezvousSendFirst mirrors the reversed ordering in the same
// scenario: B blocks in send, A's later recv returns m immediately and B
// is re-queued runnable.
func TestIPCRendezvousSendFirst(t *testing.T) {
	c := newTestContext(t)
	a, err := c.Fork(c.Current)
	require.NoError(t, err)
	b, err := c.Fork(c.Current)
	require.NoError(t, err)
	c.Ready.PopFront()
	c.Ready.PopFront()

	delivered := c.Send(b, a, []byte("hello"))
	assert.False(t, delivered, "B must block, A isn't receiving yet")
	assert.Equal(t, proc.Sending, b.SendingOrReceiving)

	msg, ok := c.Recv(a, proc.Any)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), msg.Body)
	assert.Equal(t, proc.Running, b.SendingOrReceiving)
	assert.Equal(t, 1, c.Ready.Len(), "B must be re-queued runnable")
}

// TestReapFreesResourcesOnLastReference mirrors spec.md §8 scenario 6: a
// finished, reaped process's descriptor table and address space are
// released when it held the last reference, and its entry disappears
// from the process table.
func TestReapFreesResourcesOnLastReference(t *testing.T) {
	c := newTestContext(t)
	child, err := c.Fork(c.Current)
	require.NoError(t, err)

	c.TaskExit(child, 0)
	c.SwitchNext()

	_, ok := c.Table.FromPID(child.PID)
	assert.False(t, ok, "reaped process must be removed from the table")
	assert.True(t, child.Reaped)
}

func TestReapKeepsDirectoryAliveForSurvivingThread(t *testing.T) {
	c := newTestContext(t)
	thread, err := c.CloneThread(c.Current, 0x9000, 0x8050000, 0)
	require.NoError(t, err)
	dir := c.Current.Thread.Directory
	refBefore := dir.RefCount()
	require.Equal(t, 2, refBefore)

	c.TaskExit(thread, 0)
	c.SwitchNext()

	assert.Equal(t, refBefore-1, dir.RefCount(), "releasing the thread's reference must not free a still-shared directory")
}

func TestSwitchNextSkipsSleepingCurrentAndRequeuesItOnWake(t *testing.T) {
	c := newTestContext(t)
	child, err := c.Fork(c.Current)
	require.NoError(t, err)

	c.SleepUntil(c.Current, sleepwait.Time{Sec: 10})

	next := c.SwitchNext()
	require.NotNil(t, next)
	assert.Equal(t, child.PID, next.PID, "the sleeping process must not be re-queued")

	c.TickTimer(sleepwait.Time{Sec: 10})
	assert.Equal(t, 1, c.Ready.Len())
}

func TestKillWakesSleepingTarget(t *testing.T) {
	c := newTestContext(t)
	child, err := c.Fork(c.Current)
	require.NoError(t, err)
	c.Ready.PopFront()
	c.SleepUntil(child, sleepwait.Time{Sec: 100})

	c.Kill(child, sigqueueSIGSEGVForTest)

	assert.Equal(t, proc.MemberReady, child.Membership)
	assert.Equal(t, 1, c.Ready.Len())
}

const sigqueueSIGSEGVForTest = 11

func TestSbrkRequiresInstallThenGrowsHeap(t *testing.T) {
	c := newTestContext(t)
	assert.Panics(t, func() { c.Sbrk(4096) }, "sbrk before heap install must be fatal")

	c.InstallHeap()
	base := c.Sbrk(8192)
	assert.Equal(t, base+8192, c.Heap.HeapEnd())
}

func TestGetpidReflectsCurrentProcess(t *testing.T) {
	c := newTestContext(t)
	assert.Equal(t, c.Current.PID, c.Getpid())
}
