// Package queue provides the bounded order queue between trading agents and
// the execution stage. Enqueue blocks while full, Dequeue blocks while
// empty; both suspend on a condition variable rather than spinning, and
// Close wakes every waiter.
package queue

import (
	"errors"
	"sync"

	"github.com/quantsim/tradesim/pkg/core"
)

// ErrClosed is returned once the queue has been closed
var ErrClosed = errors.New("order queue closed")

// OrderQueue is a bounded thread-safe FIFO of pending orders
type OrderQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buf    []core.Order
	head   int
	tail   int
	size   int
	closed bool
}

// New creates an OrderQueue with the given fixed capacity
func New(capacity int) *OrderQueue {
	if capacity <= 0 {
		panic("queue capacity must be positive")
	}

	q := &OrderQueue{buf: make([]core.Order, capacity)}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends an order, blocking while the queue is at capacity.
// Returns ErrClosed if the queue is closed before space becomes available.
func (q *OrderQueue) Enqueue(o core.Order) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == len(q.buf) && !q.closed {
		q.notFull.Wait()
	}

	if q.closed {
		return ErrClosed
	}

	q.buf[q.tail] = o
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++

	q.notEmpty.Signal()
	return nil
}

// TryEnqueue appends an order without blocking. Returns false if the queue
// is full, ErrClosed if closed.
func (q *OrderQueue) TryEnqueue(o core.Order) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, ErrClosed
	}

	if q.size == len(q.buf) {
		return false, nil
	}

	q.buf[q.tail] = o
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++

	q.notEmpty.Signal()
	return true, nil
}

// Dequeue removes the oldest order, blocking while the queue is empty.
// Returns ErrClosed once the queue is closed and drained.
func (q *OrderQueue) Dequeue() (core.Order, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 && !q.closed {
		q.notEmpty.Wait()
	}

	if q.size == 0 {
		return core.Order{}, ErrClosed
	}

	o := q.buf[q.head]
	q.buf[q.head] = core.Order{}
	q.head = (q.head + 1) % len(q.buf)
	q.size--

	q.notFull.Signal()
	return o, nil
}

// Len returns the number of queued orders
func (q *OrderQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the fixed capacity
func (q *OrderQueue) Cap() int {
	return len(q.buf)
}

// Close marks the queue closed and wakes all blocked callers. Pending
// orders already in the queue remain dequeueable; new enqueues are
// rejected. Close is idempotent.
func (q *OrderQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
