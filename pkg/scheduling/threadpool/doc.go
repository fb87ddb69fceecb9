/*
Package threadpool provides a fixed-size pool of worker threads consuming a
shared FIFO queue.

Each worker is a goroutine locked to its own OS thread for the lifetime of the
pool. On Linux the thread is named "<prefix>-<index>" and runs at the nice
value derived from the configured Priority, so the workers are visible and
distinguishable in top, ps and perf.

Basic usage:

	pool, err := threadpool.New(threadpool.DefaultConfig().WithThreads(4))
	if err != nil {
		return err
	}
	defer pool.Dispose()

	err = pool.Enqueue(threadpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	}))

Construction:

New blocks until every worker thread is running. A nil Config.Threads means
one worker per CPU; an explicit count must be positive. The number of workers
never grows: a worker terminated by a critical fault is not replaced.

Faults:

An error returned by a task, or a panic escaping it, is logged through the
logging package and the worker moves on to the next task. Panics classified
by IsCritical, and runtime.Goexit inside a task, terminate the worker instead.

Inline execution:

A task that needs the result of a sibling it queued on the same pool would
deadlock a small pool by blocking its worker. TryExecuteInline lets such a
task run the sibling on its own thread. The context a task receives carries
its worker identity, which is what TryExecuteInline checks. It keeps working
while the pool drains. Tasks that both a worker and an inline caller may
reach implement Claimer so that only one of them runs the task.

Shutdown:

Dispose fires the shutdown signal once, closes the queue and joins every
worker. Running tasks are never interrupted. With ShutdownDrain (the default)
tasks queued before Dispose still run; with ShutdownAbandon they are dropped
and those implementing Abandoner are told so. Dispose must not be called from
a task running on the same pool; use Shutdown there.
*/
package threadpool
