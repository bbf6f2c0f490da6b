// File: internal/concurrency/lock_free_queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded ring buffer with one consumer. Producers serialize on a mutex;
// the consumer side stays lock-free.

package concurrency

import (
	"sync"
	"sync/atomic"
)

// Queue is a bounded multi-producer, single-consumer FIFO.
type Queue[T any] struct {
	mask    uint64
	entries []T
	head    atomic.Uint64
	tail    atomic.Uint64
	pmu     sync.Mutex
}

// NewQueue creates a queue with capacity rounded up to a power of two.
func NewQueue[T any](capacity int) *Queue[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Queue[T]{mask: uint64(size - 1), entries: make([]T, size)}
}

// Enqueue adds val; returns false if full. Safe for concurrent producers.
func (q *Queue[T]) Enqueue(val T) bool {
	q.pmu.Lock()
	defer q.pmu.Unlock()
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.entries)) {
		return false
	}
	q.entries[tail&q.mask] = val
	q.tail.Store(tail + 1)
	return true
}

// Dequeue removes and returns the oldest item. Only the consumer may call it.
func (q *Queue[T]) Dequeue() (item T, ok bool) {
	head := q.head.Load()
	if head >= q.tail.Load() {
		return item, false
	}
	var zero T
	item = q.entries[head&q.mask]
	q.entries[head&q.mask] = zero
	q.head.Store(head + 1)
	return item, true
}

// Len is a racy size estimate.
func (q *Queue[T]) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Cap returns the ring size.
func (q *Queue[T]) Cap() int { return len(q.entries) }
