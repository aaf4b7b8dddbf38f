package pio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFIFOPushPopOrder(t *testing.T) {
	f := NewFIFO()
	assert.True(t, f.IsEmpty())
	for i := uint32(0); i < FIFODepth; i++ {
		assert.True(t, f.Push(i))
	}
	assert.True(t, f.IsFull())
	assert.False(t, f.Push(99), "push into a full FIFO must fail without mutating state")

	for i := uint32(0); i < FIFODepth; i++ {
		word, ok := f.Pop()
		assert.True(t, ok)
		assert.Equal(t, i, word)
	}
	_, ok := f.Pop()
	assert.False(t, ok)
}

func TestFIFOJoinedDoublesDepth(t *testing.T) {
	f := NewFIFO()
	f.SetJoined(true)
	assert.Equal(t, 2*FIFODepth, f.Depth())
	for i := 0; i < 2*FIFODepth; i++ {
		assert.True(t, f.Push(uint32(i)))
	}
	assert.True(t, f.IsFull())

	f.SetJoined(false)
	assert.Equal(t, FIFODepth, f.Depth())
	assert.Equal(t, FIFODepth, f.Level(), "un-joining truncates an over-full FIFO down to the plain depth")
}

func TestFIFODebugLatchesSurviveClear(t *testing.T) {
	f := NewFIFO()
	f.Stall, f.Over, f.Under = true, true, true
	f.Push(1)
	f.Clear()
	assert.True(t, f.IsEmpty())
	assert.True(t, f.Stall, "Clear empties the queue but leaves sticky debug latches alone")

	f.ClearDebug()
	assert.False(t, f.Stall)
	assert.False(t, f.Over)
	assert.False(t, f.Under)
}
