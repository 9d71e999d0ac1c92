package queue

// Interface is a *type constraint* that every queue in this module satisfies.
// We never store a queue in a runtime Interface value on hot paths;
// it exists so helpers and tests can be written once for all implementations.
type Interface[T any] interface {
	// Enqueue adds an element to the tail of the queue.
	// It returns false without modifying the queue if the queue is full.
	Enqueue(T) bool

	// Dequeue removes and returns the oldest element.
	// If the queue is empty it returns an empty T and false.
	Dequeue() (T, bool)

	// IsEmpty reports whether no elements are queued.
	IsEmpty() bool

	// IsFull reports whether the queue is at capacity.
	IsFull() bool

	// Size returns the number of queued elements at the time of the call.
	Size() int

	// FreeAll drops every queued element. The queue stays usable.
	FreeAll()

	// FreeSlots returns how many more elements can be enqueued before the queue is full.
	FreeSlots() uint64

	// UsedSlots returns how many elements are currently queued.
	UsedSlots() uint64
}
