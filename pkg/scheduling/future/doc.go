/*
Package future provides single-assignment completion handles.

A Promise is the write side and a Future the read side of one result cell.
The cell is resolved exactly once, either with a value or with an error;
later attempts to resolve it are ignored and report false.

	p := future.NewPromise[int]()
	go func() { p.Resolve(42) }()

	v, err := p.Future().Wait(ctx)

Any number of goroutines may wait on the same Future. Done exposes a channel
that is closed on resolution, so a Future composes with select. OnComplete
registers a callback that runs once the result is known.

Inline waiting:

A producer may attach an inliner to a Promise. Wait calls it before blocking,
giving the producer a chance to run the pending computation on the waiting
goroutine instead. The threadpool uses this so that a unit waiting on a
sibling unit queued on the same pool does not deadlock the pool.
*/
package future
