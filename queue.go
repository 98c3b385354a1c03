package threadpool

// queue is a FIFO used for both pending work and parked workers.
// It is not safe for concurrent use, Pool guards it with its mutex.
type queue[T any] []T

func (q *queue[T]) Len() int { return len(*q) }

func (q *queue[T]) Push(v T) {
	*q = append(*q, v)
}

// Pop removes and returns the oldest element. Must not be called on empty queue.
func (q *queue[T]) Pop() T {
	old := *q
	v := old[0]
	var zero T
	old[0] = zero // drop reference for gc
	*q = old[1:]
	if len(*q) == 0 {
		*q = old[:0] // reuse backing array once drained
	}
	return v
}
