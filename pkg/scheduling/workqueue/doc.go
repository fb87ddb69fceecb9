/*
Package workqueue provides an unbounded, concurrency-safe FIFO queue with
blocking removal and a one-way closing transition.

It is the buffer between producers submitting work and the worker threads of
a threadpool, but it is generic and can be used on its own:

	q := workqueue.New[string]()
	_ = q.Enqueue("a")

	item, err := q.Dequeue(ctx) // blocks until an item, Close or ctx

Ordering:

Items leave the queue in insertion order. When several producers enqueue
concurrently the queue serializes them, so the order between two producers is
whatever order their Enqueue calls were linearized in.

Blocking:

Dequeue never spins. An idle consumer parks on a channel and is woken by the
next Enqueue, by Close, or by its context. An item already in the queue is
always preferred over a cancelled context or a closed queue, which lets a
closed queue be drained by its consumers.

Closing:

Close is idempotent. After Close, Enqueue fails with errors.ErrDisposed and
Dequeue on an empty queue returns errors.ErrDisposed instead of blocking.
*/
package workqueue
