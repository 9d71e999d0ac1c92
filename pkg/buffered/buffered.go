// Package buffered implements the queue contract on top of a buffered Go
// channel. It is the baseline the linked list queue is benchmarked against.
package buffered

type BufferedQueue[T any] struct {
	ch chan T
}

func New[T any](bufferSize int) *BufferedQueue[T] {
	// Enforce minimum capacity of 1 to ensure proper bounded buffer semantics.
	// A zero-capacity Go channel is an unbuffered synchronization primitive,
	// not a zero-capacity buffer, which would make every Enqueue fail.
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &BufferedQueue[T]{
		ch: make(chan T, bufferSize),
	}
}

func (q *BufferedQueue[T]) Enqueue(val T) bool {
	select {
	case q.ch <- val:
		return true
	default:
		return false
	}
}

func (q *BufferedQueue[T]) Dequeue() (val T, ok bool) {
	select {
	case val = <-q.ch:
		return val, true
	default:
		return val, false
	}
}

func (q *BufferedQueue[T]) IsEmpty() bool {
	return len(q.ch) == 0
}

func (q *BufferedQueue[T]) IsFull() bool {
	return len(q.ch) == cap(q.ch)
}

func (q *BufferedQueue[T]) Size() int {
	return len(q.ch)
}

// FreeAll drains whatever is buffered at the time of the call. Unlike the
// linked list queue this is not atomic with respect to concurrent producers.
func (q *BufferedQueue[T]) FreeAll() {
	for {
		select {
		case <-q.ch:
		default:
			return
		}
	}
}

func (q *BufferedQueue[T]) FreeSlots() uint64 {
	return uint64(cap(q.ch) - len(q.ch))
}

func (q *BufferedQueue[T]) UsedSlots() uint64 {
	return uint64(len(q.ch))
}
