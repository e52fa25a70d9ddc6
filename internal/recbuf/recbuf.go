// Package recbuf provides the append-only record buffer both enumerators
// accumulate into while the OS walks its displays or windows.
package recbuf

import (
	"errors"
	"fmt"
)

// ErrAllocFailed is returned when the buffer cannot grow any further.
// The buffer has already dropped its storage when this is returned.
var ErrAllocFailed = errors.New("recbuf: allocation failed")

// DefaultMaxCapacity bounds growth when the caller passes no limit.
const DefaultMaxCapacity = 1 << 16

// Buffer is a growable, append-only sequence of records. Capacity doubles
// when exhausted. It is not safe for concurrent use; enumeration callbacks
// run on the calling goroutine.
type Buffer[T any] struct {
	items    []T
	max      int
	released bool
}

// New allocates a buffer with room for initialCapacity records that may grow
// up to maxCapacity. maxCapacity <= 0 selects DefaultMaxCapacity.
func New[T any](initialCapacity, maxCapacity int) (*Buffer[T], error) {
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxCapacity
	}
	if initialCapacity <= 0 || initialCapacity > maxCapacity {
		return nil, fmt.Errorf("%w: initial capacity %d outside (0, %d]", ErrAllocFailed, initialCapacity, maxCapacity)
	}
	return &Buffer[T]{
		items: make([]T, 0, initialCapacity),
		max:   maxCapacity,
	}, nil
}

// Append adds v, doubling the backing storage when it is full. If the
// storage would have to grow past the limit, every record collected so far
// is dropped and ErrAllocFailed is returned.
func (b *Buffer[T]) Append(v T) error {
	if b.released {
		return fmt.Errorf("%w: buffer released", ErrAllocFailed)
	}
	if len(b.items) == cap(b.items) {
		next := cap(b.items) * 2
		if next > b.max {
			next = b.max
		}
		if next <= len(b.items) {
			b.Release()
			return fmt.Errorf("%w: record limit %d reached", ErrAllocFailed, b.max)
		}
		grown := make([]T, len(b.items), next)
		copy(grown, b.items)
		b.items = grown
	}
	b.items = append(b.items, v)
	return nil
}

// Len reports the number of records appended so far.
func (b *Buffer[T]) Len() int {
	return len(b.items)
}

// Cap reports the current storage capacity.
func (b *Buffer[T]) Cap() int {
	return cap(b.items)
}

// Finalize hands the records to the caller. The returned slice is trimmed to
// its length and is nil when nothing was appended. The buffer must not be
// used afterwards.
func (b *Buffer[T]) Finalize() []T {
	if b.released || len(b.items) == 0 {
		b.Release()
		return nil
	}
	out := b.items[:len(b.items):len(b.items)]
	b.items = nil
	b.released = true
	return out
}

// Release drops the storage. Calling it more than once is harmless.
func (b *Buffer[T]) Release() {
	b.items = nil
	b.released = true
}
