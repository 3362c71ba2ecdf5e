// Package pipeline provides the blocking queues that connect the stream
// producers to their single consumers.
package pipeline

import "sync"

// Queue is an unbounded FIFO queue safe for any number of producers and
// consumers. Get blocks until an element is available. AppendList
// publishes a batch as one contiguous unit: no element from another
// producer can land between two elements of the same batch.
type Queue[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []T
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Append enqueues a single element and wakes one waiting consumer.
func (q *Queue[T]) Append(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.cond.Signal()
}

// AppendList enqueues all elements of the batch back to back. An empty
// batch is a no-op.
func (q *Queue[T]) AppendList(items []T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Get removes and returns the oldest element, blocking while the queue
// is empty.
func (q *Queue[T]) Get() T {
	q.mu.Lock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.mu.Unlock()
	return item
}

// Len reports the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
