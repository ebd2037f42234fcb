package vfsref

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeHandle struct {
	acquired int
	released int
}

func (h *fakeHandle) Acquire() { h.acquired++ }
func (h *fakeHandle) Release() { h.released++ }

func TestAppendFillsHoleBeforeGrowing(t *testing.T) {
	tbl := NewTable()
	a, b, c := &fakeHandle{}, &fakeHandle{}, &fakeHandle{}

	assert.Equal(t, 0, tbl.Append(a))
	assert.Equal(t, 1, tbl.Append(b))
	tbl.Move(1, 1) // no-op, keep b in place

	tbl.entries[0] = nil // simulate a close leaving a hole
	assert.Equal(t, 0, tbl.Append(c))
}

func TestMoveReplacesDestAndClearsSrc(t *testing.T) {
	tbl := NewTable()
	a := &fakeHandle{}
	src := tbl.Append(a)
	dest := src + 5

	tbl.Move(src, dest)

	assert.Equal(t, a, tbl.Get(dest))
	assert.Nil(t, tbl.Get(src))
}

func TestMoveReleasesPriorDestOccupant(t *testing.T) {
	tbl := NewTable()
	a, b := &fakeHandle{}, &fakeHandle{}
	srcA := tbl.Append(a)
	destB := tbl.Append(b)

	tbl.Move(srcA, destB)

	assert.Equal(t, 1, b.released)
	assert.Equal(t, a, tbl.Get(destB))
}

func TestRetainReleaseRefSharesAcrossClone(t *testing.T) {
	tbl := NewTable()
	assert.Equal(t, 1, tbl.Refs())

	tbl.Retain() // clone() shares the table
	assert.Equal(t, 2, tbl.Refs())

	assert.False(t, tbl.ReleaseRef(), "parent closing must not be the last reference")
	assert.True(t, tbl.ReleaseRef(), "child closing must observe the last reference")
}

func TestCloseReleasesEveryHandle(t *testing.T) {
	tbl := NewTable()
	a, b := &fakeHandle{}, &fakeHandle{}
	tbl.Append(a)
	tbl.Append(b)

	tbl.Close()

	assert.Equal(t, 1, a.released)
	assert.Equal(t, 1, b.released)
}
