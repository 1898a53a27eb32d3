// Package ringbuf provides a small fixed-capacity buffer where new entries are
// pushed to the front and the oldest entry is evicted once capacity is reached.
package ringbuf

// Ring is a bounded push-front buffer. The zero value is not usable; create one
// with New. Ring is not safe for concurrent use; callers hold their own locks.
type Ring[T any] struct {
	capacity int
	entries  []T
}

func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}

	return &Ring[T]{
		capacity: capacity,
		entries:  make([]T, 0, capacity),
	}
}

// PushFront inserts v as the newest entry, evicting the oldest when full.
func (r *Ring[T]) PushFront(v T) {
	if len(r.entries) < r.capacity {
		r.entries = append(r.entries, v)
		copy(r.entries[1:], r.entries[:len(r.entries)-1])
		r.entries[0] = v
		return
	}

	copy(r.entries[1:], r.entries[:len(r.entries)-1])
	r.entries[0] = v
}

// Snapshot returns the entries newest-first as an independent copy.
func (r *Ring[T]) Snapshot() []T {
	out := make([]T, len(r.entries))
	copy(out, r.entries)
	return out
}

// Replace discards the current contents and fills the ring from entries
// (newest-first), truncating anything beyond capacity.
func (r *Ring[T]) Replace(entries []T) {
	if len(entries) > r.capacity {
		entries = entries[:r.capacity]
	}

	r.entries = r.entries[:0]
	r.entries = append(r.entries, entries...)
}

func (r *Ring[T]) Len() int {
	return len(r.entries)
}

func (r *Ring[T]) Capacity() int {
	return r.capacity
}
