package proc

import (
	"testing"

	"github.com/corvid-os/kernel/internal/vfsref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct{ released int }

func (h *fakeHandle) Acquire() {}
func (h *fakeHandle) Release() { h.released++ }

func TestSpawnInitIsPID1WithNoParent(t *testing.T) {
	tbl := NewTable()
	init := tbl.SpawnInit(nil)

	assert.EqualValues(t, 1, init.PID)
	assert.Nil(t, tbl.Tree.Parent(init))
}

func TestSpawnProcessInheritsIdentityAndSharesFDs(t *testing.T) {
	tbl := NewTable()
	parent := tbl.SpawnInit(nil)
	parent.Name = "shell"
	parent.User = 1000
	h := &fakeHandle{}
	AppendFD(parent, h)

	child := tbl.SpawnProcess(parent)

	assert.EqualValues(t, 2, child.PID)
	assert.Equal(t, "shell", child.Name)
	assert.EqualValues(t, 1000, child.User)
	assert.Same(t, parent.FDs, child.FDs)
	assert.Equal(t, 2, child.FDs.Refs())
	assert.False(t, child.Started)
	assert.Empty(t, child.WaitQueue)
}

func TestFromPIDScansProcessList(t *testing.T) {
	tbl := NewTable()
	init := tbl.SpawnInit(nil)
	child := tbl.SpawnProcess(init)

	found, ok := tbl.FromPID(child.PID)
	require.True(t, ok)
	assert.Same(t, child, found)

	_, ok = tbl.FromPID(999)
	assert.False(t, ok)
}

func TestAttachAndRemoveMaintainsTree(t *testing.T) {
	tbl := NewTable()
	init := tbl.SpawnInit(nil)
	child := tbl.SpawnProcess(init)

	assert.Same(t, init, tbl.Tree.Parent(child))
	assert.Same(t, child, tbl.Tree.FirstChild(init))

	tbl.Delete(child)
	assert.Empty(t, tbl.Tree.Children(init))
}

func TestMoveFDReleasesPriorOccupant(t *testing.T) {
	tbl := NewTable()
	p := tbl.SpawnInit(nil)
	a, b := &fakeHandle{}, &fakeHandle{}
	srcIdx := AppendFD(p, a)
	destIdx := AppendFD(p, b)

	MoveFD(p, srcIdx, destIdx)

	assert.Equal(t, 1, b.released)
	assert.Equal(t, vfsref.Handle(a), p.FDs.Get(destIdx))
}
