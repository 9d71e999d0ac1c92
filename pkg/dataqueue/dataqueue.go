// Package dataqueue provides a bounded, thread-safe FIFO queue backed by a
// singly linked list. It is meant for buffering data chunks between
// producers and consumers running in different goroutines.
package dataqueue

import "sync"

// node is one cell of the list. Only the queue ever holds a *node.
type node[T any] struct {
	value T
	next  *node[T]
}

// BoundedQueue is a FIFO queue with a fixed maximum number of elements.
// All methods are safe for concurrent use. None of them block waiting for
// space or data: Enqueue on a full queue and Dequeue on an empty queue
// return immediately.
//
// Memory use is proportional to the number of queued elements, not to the
// peak, since nodes are allocated on Enqueue and dropped on Dequeue.
type BoundedQueue[T any] struct {
	mu          sync.Mutex
	head        *node[T]
	tail        *node[T]
	count       int
	maxCapacity int
}

// New creates a BoundedQueue that holds at most maxCapacity elements.
// A maxCapacity below 1 is clamped to 1, so every queue can hold at least
// one element.
func New[T any](maxCapacity int) *BoundedQueue[T] {
	if maxCapacity < 1 {
		maxCapacity = 1
	}
	return &BoundedQueue[T]{maxCapacity: maxCapacity}
}

// Enqueue appends v to the tail of the queue.
// It returns false and leaves the queue untouched if the queue is full.
func (q *BoundedQueue[T]) Enqueue(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == q.maxCapacity {
		return false
	}

	n := &node[T]{value: v}
	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}
	q.tail = n
	q.count++
	return true
}

// Dequeue removes and returns the element at the head of the queue.
// If the queue is empty it returns the zero T and false.
func (q *BoundedQueue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	n := q.head
	if n == nil {
		return zero, false
	}

	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.count--

	v := n.value
	n.value = zero
	n.next = nil
	return v, true
}

// IsEmpty reports whether the queue holds no elements.
func (q *BoundedQueue[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == 0
}

// IsFull reports whether the queue is at capacity.
func (q *BoundedQueue[T]) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == q.maxCapacity
}

// Size returns the number of queued elements. The value is a snapshot and
// may be stale as soon as it is returned.
func (q *BoundedQueue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Capacity returns the maximum number of elements the queue may hold.
func (q *BoundedQueue[T]) Capacity() int {
	return q.maxCapacity
}

// FreeAll drops every queued element in a single locked pass.
// The queue stays usable afterwards.
func (q *BoundedQueue[T]) FreeAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	for n := q.head; n != nil; {
		next := n.next
		n.value = zero
		n.next = nil
		n = next
	}
	q.head = nil
	q.tail = nil
	q.count = 0
}

// UsedSlots returns how many elements are currently queued.
func (q *BoundedQueue[T]) UsedSlots() uint64 {
	return uint64(q.Size())
}

// FreeSlots returns how many more elements can be enqueued before the queue is full.
func (q *BoundedQueue[T]) FreeSlots() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return uint64(q.maxCapacity - q.count)
}
