package vstack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clrfirmata/ilengine/internal/slot"
)

func TestPushPopRoundTrip(t *testing.T) {
	s := New(2)
	before := s.Snapshot()
	s.Push(slot.Int32Slot(7))
	got := s.Pop()
	assert.Equal(t, slot.Int32Slot(7), got)
	assert.Equal(t, before, s.Snapshot())
}

func TestTopDoesNotPop(t *testing.T) {
	s := New(2)
	s.Push(slot.Int32Slot(9))
	assert.Equal(t, slot.Int32Slot(9), s.Top())
	assert.Equal(t, 1, s.Depth())
}

func TestNthMatchesHistory(t *testing.T) {
	s := New(4)
	s.Push(slot.Int32Slot(1))
	s.Push(slot.Int32Slot(2))
	s.Push(slot.Int32Slot(3))
	assert.Equal(t, slot.Int32Slot(3), s.Nth(0))
	assert.Equal(t, slot.Int32Slot(2), s.Nth(1))
	assert.Equal(t, slot.Int32Slot(1), s.Nth(2))
}

func TestGrowsPastInitialCapacity(t *testing.T) {
	s := New(1)
	for i := 0; i < 100; i++ {
		s.Push(slot.Int32Slot(int32(i)))
	}
	assert.Equal(t, 100, s.Depth())
	for i := 99; i >= 0; i-- {
		assert.Equal(t, slot.Int32Slot(int32(i)), s.Pop())
	}
	assert.True(t, s.Empty())
}

func TestUnderflowPanics(t *testing.T) {
	s := New(1)
	require.Panics(t, func() { s.Pop() })
}

func TestClear(t *testing.T) {
	s := New(2)
	s.Push(slot.Int32Slot(1))
	s.Push(slot.Int32Slot(2))
	s.Clear()
	assert.True(t, s.Empty())
}
