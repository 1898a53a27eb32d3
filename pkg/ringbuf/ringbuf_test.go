package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushFrontOrder(t *testing.T) {
	r := New[int](5)

	r.PushFront(1)
	r.PushFront(2)
	r.PushFront(3)

	assert.Equal(t, []int{3, 2, 1}, r.Snapshot())
	assert.Equal(t, 3, r.Len())
}

func TestEvictsOldestAtCapacity(t *testing.T) {
	r := New[int](3)

	for i := 1; i <= 5; i++ {
		r.PushFront(i)
	}

	assert.Equal(t, []int{5, 4, 3}, r.Snapshot())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Capacity())
}

func TestSnapshotIsACopy(t *testing.T) {
	r := New[string](2)
	r.PushFront("a")

	snap := r.Snapshot()
	snap[0] = "mutated"

	assert.Equal(t, []string{"a"}, r.Snapshot())
}

func TestReplaceTruncatesToCapacity(t *testing.T) {
	r := New[int](2)
	r.PushFront(9)

	r.Replace([]int{1, 2, 3, 4})

	assert.Equal(t, []int{1, 2}, r.Snapshot())
}

func TestZeroCapacityClampedToOne(t *testing.T) {
	r := New[int](0)
	r.PushFront(1)
	r.PushFront(2)

	assert.Equal(t, []int{2}, r.Snapshot())
}
