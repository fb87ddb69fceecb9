package workqueue

import (
	"context"
	"fmt"
	"sync"

	gferrors "github.com/vnykmshr/goasync/pkg/common/errors"
)

// Queue is an unbounded FIFO queue safe for concurrent producers and
// consumers.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	closed bool

	// avail holds at most one wake-up token. A consumer that takes an item
	// and leaves more behind passes the token on.
	avail   chan struct{}
	closeCh chan struct{}
	once    sync.Once
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		avail:   make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
}

// Enqueue appends item to the tail of the queue.
// It returns errors.ErrDisposed once Close has been called.
func (q *Queue[T]) Enqueue(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("workqueue: enqueue: %w", gferrors.ErrDisposed)
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Dequeue removes and returns the oldest item, blocking while the queue is
// empty. It returns errors.ErrDisposed when the queue is closed and empty, and
// an error wrapping errors.ErrWaitCancelled and the context error when ctx is
// done before an item arrives.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	for {
		if item, ok, closed := q.take(); ok {
			return item, nil
		} else if closed {
			var zero T
			return zero, gferrors.ErrDisposed
		}

		select {
		case <-q.avail:
		case <-q.closeCh:
		case <-ctx.Done():
			// Last look so an item that raced the cancellation is not stranded
			// behind a consumed token.
			if item, ok, _ := q.take(); ok {
				return item, nil
			}
			var zero T
			return zero, fmt.Errorf("%w: %w", gferrors.ErrWaitCancelled, ctx.Err())
		}
	}
}

// TryDequeue removes and returns the oldest item without blocking.
func (q *Queue[T]) TryDequeue() (T, bool) {
	item, ok, _ := q.take()
	return item, ok
}

// Close stops the queue from accepting items and wakes every blocked
// consumer. Items already queued stay available to Dequeue. Close is
// idempotent.
func (q *Queue[T]) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.closeCh)
	})
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drain removes and returns every queued item in FIFO order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := make([]T, len(q.items)-q.head)
	copy(drained, q.items[q.head:])
	q.reset()
	return drained
}

// Snapshot returns a copy of the queued items in FIFO order. The result is
// stale as soon as it is returned; use it for diagnostics only.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := make([]T, len(q.items)-q.head)
	copy(snap, q.items[q.head:])
	return snap
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// take pops the head item. closed is reported only when the queue is empty.
func (q *Queue[T]) take() (item T, ok bool, closed bool) {
	q.mu.Lock()
	if q.head == len(q.items) {
		closed = q.closed
		q.mu.Unlock()
		return item, false, closed
	}

	item = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++

	remaining := len(q.items) - q.head
	if remaining == 0 {
		q.reset()
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.mu.Unlock()

	if remaining > 0 {
		q.signal()
	}
	return item, true, false
}

// reset empties the backing slice. Caller holds mu.
func (q *Queue[T]) reset() {
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
}

func (q *Queue[T]) signal() {
	select {
	case q.avail <- struct{}{}:
	default:
	}
}
