/*
Package async runs computations on a dedicated thread pool and returns a
future.Future for each of them.

A Service owns one threadpool.Pool. Four submission shapes cover synchronous
and asynchronous computations, with or without a result:

	svc, err := async.New("render", async.WithThreads(4))
	if err != nil {
		return err
	}
	defer svc.Dispose()

	f, err := async.Submit(svc, func(ctx context.Context) (image.Image, error) {
		return decode(path)
	})

	img, err := f.Wait(ctx)

Submit and SubmitAsync are functions rather than methods because Go methods
cannot take type parameters; Go and GoAsync are their result-less methods.

Faults:

An error returned by a computation, or a panic escaping it, resolves the
Future with that fault and never reaches the pool's error log. Panics that
threadpool.IsCritical classifies as critical also terminate the worker.

Waiting from a unit:

A unit may wait on the Future of another unit submitted to the same service.
If that unit has not started yet, Wait runs it on the waiting worker instead
of blocking, so even a single-threaded service cannot deadlock this way.

Disposal:

Dispose is idempotent and blocks until all worker threads have exited. The
disposed check in the submission functions is best-effort. Units queued at
Dispose run to completion under threadpool.ShutdownDrain and have their
Futures rejected with errors.ErrDisposed under threadpool.ShutdownAbandon.
*/
package async
