// Package ring provides a fixed-capacity append-only buffer that evicts its
// oldest entries, used for the bounded histories kept by the engine.
package ring

// Buffer keeps the most recent entries up to a fixed capacity. The zero value
// is not usable; construct with New.
type Buffer[T any] struct {
	items []T
	cap   int
}

// New creates a buffer bounded to capacity entries. Capacities below one are
// coerced to one.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, 0, capacity), cap: capacity}
}

// Append adds v, evicting the oldest entry when full.
func (b *Buffer[T]) Append(v T) {
	if len(b.items) == b.cap {
		copy(b.items, b.items[1:])
		b.items[len(b.items)-1] = v
		return
	}
	b.items = append(b.items, v)
}

// Items returns a copy of the buffered entries, oldest first.
func (b *Buffer[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Each calls fn with a pointer to every buffered entry, oldest first.
func (b *Buffer[T]) Each(fn func(*T)) {
	for i := range b.items {
		fn(&b.items[i])
	}
}

// Len reports the number of buffered entries.
func (b *Buffer[T]) Len() int { return len(b.items) }

// Clear discards all entries while keeping capacity.
func (b *Buffer[T]) Clear() { b.items = b.items[:0] }
