package action

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

type counter struct {
	value int
	dirty int
}

func (c *counter) MarkDirty() {
	c.dirty++
}

func (c *counter) set(l *Log, value int) {
	old := c.value
	l.Do(New(c, "Set value",
		func() { c.value = old },
		func() { c.value = value }))
}

func TestUndoRedo(t *testing.T) {
	c := &counter{}
	l := NewLog()

	assert.False(t, l.Undo())
	assert.False(t, l.Redo())

	c.set(l, 1)
	c.set(l, 2)
	assert.Equal(t, 2, c.value)
	assert.Equal(t, "Set value", l.UndoDescription())

	assert.True(t, l.Undo())
	assert.Equal(t, 1, c.value)
	assert.True(t, l.CanRedo())

	assert.True(t, l.Redo())
	assert.Equal(t, 2, c.value)

	assert.True(t, l.Undo())
	assert.True(t, l.Undo())
	assert.Equal(t, 0, c.value)
	assert.False(t, l.CanUndo())
}

func TestNewActionClearsRedo(t *testing.T) {
	c := &counter{}
	l := NewLog()

	c.set(l, 1)
	l.Undo()
	assert.True(t, l.CanRedo())

	c.set(l, 5)
	assert.False(t, l.CanRedo())
	assert.Equal(t, 5, c.value)
}

func TestTransaction(t *testing.T) {
	c := &counter{}
	l := NewLog()

	l.Begin("Batch")
	l.Begin("Nested") // ignored while a transaction is open
	assert.True(t, l.InTransaction())
	c.set(l, 1)
	c.set(l, 2)
	c.set(l, 3)
	l.End()
	assert.False(t, l.InTransaction())
	assert.Equal(t, "Batch", l.UndoDescription())

	assert.True(t, l.Undo())
	assert.Equal(t, 0, c.value, "a transaction is undone as a single step in reverse order")
	assert.False(t, l.CanUndo())

	assert.True(t, l.Redo())
	assert.Equal(t, 3, c.value)
}

func TestEmptyTransaction(t *testing.T) {
	l := NewLog()
	l.Begin("Empty")
	l.End()
	assert.False(t, l.CanUndo())
}

func TestMarkDirty(t *testing.T) {
	c := &counter{}
	l := NewLog()

	c.set(l, 1)
	c.set(l, 2)
	l.Undo()

	l.MarkDirty()
	assert.Equal(t, 2, c.dirty)

	l.Clear()
	assert.False(t, l.CanUndo())
	assert.False(t, l.CanRedo())
}
