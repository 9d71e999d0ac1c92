package buffered

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i5heu/dataqueue/internal/queue"
)

var _ queue.Interface[int] = (*BufferedQueue[int])(nil)

func TestNonBlockingEnqueue(t *testing.T) {
	q := New[int](2)
	assert.True(t, q.Enqueue(1))
	assert.True(t, q.Enqueue(2))
	assert.False(t, q.Enqueue(3), "Enqueue on a full channel must not block")
	assert.True(t, q.IsFull())
	assert.Equal(t, 2, q.Size())

	v, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestZeroCapacityClamp(t *testing.T) {
	q := New[int](0)
	assert.Equal(t, uint64(1), q.FreeSlots())
	assert.True(t, q.Enqueue(7))
	assert.False(t, q.Enqueue(8))
}

func TestFreeAllDrains(t *testing.T) {
	q := New[int](4)
	for i := 0; i < 4; i++ {
		require.True(t, q.Enqueue(i))
	}
	q.FreeAll()
	assert.True(t, q.IsEmpty())
	assert.Equal(t, uint64(4), q.FreeSlots())
	_, ok := q.Dequeue()
	assert.False(t, ok)
}
