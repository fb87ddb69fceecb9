/*
Package goasync provides a fixed-size worker thread pool with future-based
task submission for Go applications.

Scheduling (pkg/scheduling):
  - workqueue: Blocking FIFO queue with cancellable dequeue
  - threadpool: Named, prioritised worker threads with fault isolation
  - future: Single-assignment results with inline waiting
  - async: Submit computations and get a Future back
  - scheduler: Cron and interval-based submission to a service

Support:
  - logging: Pluggable diagnostics sink (zap adapter included)
  - metrics: Prometheus instrumentation for pools and schedulers
  - common/errors: Sentinel and structured error types

Example usage:

	import (
		"github.com/vnykmshr/goasync/pkg/scheduling/async"
	)

	svc, _ := async.New("io", async.WithThreads(4)) // threads io-0..io-3
	defer svc.Dispose()

	f, _ := async.Submit(svc, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	v, err := f.Wait(ctx)

The goasync command (cmd/goasync) runs synthetic workloads on a pool and
can serve its metrics.
*/
package goasync
