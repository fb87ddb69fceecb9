/*
Package scheduling provides task execution primitives built around a fixed
set of worker threads.

  - workqueue: FIFO hand-off between producers and workers
  - threadpool: Worker threads consuming a work queue
  - future: Handles for results that are not ready yet
  - async: Submission facade returning futures
  - scheduler: Time-based submission (delays, intervals, cron)

Thread Pool:

Every worker is a goroutine locked to its own OS thread, named
"<prefix>-<index>" and run at the configured priority:

	pool, err := threadpool.New(threadpool.DefaultConfig().WithThreads(4))
	if err != nil {
		return err
	}
	defer pool.Dispose()

	pool.Enqueue(threadpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	}))

A panic in a task is logged and the worker moves on. Critical faults
(see threadpool.IsCritical) stop the worker that observed them.

Async Service:

	svc, _ := async.New("io", async.WithThreads(2))
	defer svc.Dispose()

	f, _ := async.Submit(svc, func(ctx context.Context) (string, error) {
		return "done", nil
	})
	result, err := f.Wait(ctx)

Waiting on a Future from one of the service's own workers runs the
computation inline when it has not started yet, so a single-threaded
service cannot deadlock on its own queue.

Task Scheduler:

	s, _ := scheduler.NewWithConfig(scheduler.Config{Service: svc})
	s.ScheduleCron("report", "0 0 9 * * MON-FRI", job) // Weekdays at 9 AM
	s.Start()
	defer func() { <-s.Stop() }()

All components are safe for concurrent use.
*/
package scheduling
