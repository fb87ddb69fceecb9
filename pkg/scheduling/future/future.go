package future

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gferrors "github.com/vnykmshr/goasync/pkg/common/errors"
)

// ErrPending is returned by Result while the future is unresolved.
var ErrPending = errors.New("future: result not ready")

// Future is the read side of a single-assignment result cell.
type Future[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	resolved  bool
	value     T
	err       error
	callbacks []func(T, error)
	inliner   func(ctx context.Context) bool
}

// Promise is the write side of a Future.
type Promise[T any] struct {
	f *Future[T]
}

// NewPromise creates an unresolved Promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{f: &Future[T]{done: make(chan struct{})}}
}

// Resolved returns a Future already resolved with v.
func Resolved[T any](v T) *Future[T] {
	p := NewPromise[T]()
	p.Resolve(v)
	return p.f
}

// Failed returns a Future already resolved with err.
func Failed[T any](err error) *Future[T] {
	p := NewPromise[T]()
	p.Reject(err)
	return p.f
}

// Future returns the read side of p.
func (p *Promise[T]) Future() *Future[T] {
	return p.f
}

// Resolve completes the future with v. It returns false if the future was
// already resolved.
func (p *Promise[T]) Resolve(v T) bool {
	return p.f.complete(v, nil)
}

// Reject completes the future with err. It returns false if the future was
// already resolved.
func (p *Promise[T]) Reject(err error) bool {
	var zero T
	return p.f.complete(zero, err)
}

// Complete resolves the future with v when err is nil, otherwise with err.
func (p *Promise[T]) Complete(v T, err error) bool {
	if err != nil {
		return p.Reject(err)
	}
	return p.Resolve(v)
}

// SetInliner installs fn, which Wait calls before blocking. fn should return
// true only if it made progress towards resolving the future; Wait keeps
// calling the current inliner until it returns false or the future resolves.
// SetInliner may replace the inliner while a Wait is in progress.
func (p *Promise[T]) SetInliner(fn func(ctx context.Context) bool) {
	p.f.mu.Lock()
	if !p.f.resolved {
		p.f.inliner = fn
	}
	p.f.mu.Unlock()
}

func (f *Future[T]) complete(v T, err error) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.resolved = true
	f.value = v
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	f.inliner = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}
	return true
}

// Done returns a channel closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future is resolved.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the value and error without blocking. The error is
// ErrPending while the future is unresolved.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.resolved {
		var zero T
		return zero, ErrPending
	}
	return f.value, f.err
}

// TryInline calls the future's inliner once, if it has one and is still
// unresolved, and reports whether the inliner made progress.
func (f *Future[T]) TryInline(ctx context.Context) bool {
	f.mu.Lock()
	inline := f.inliner
	resolved := f.resolved
	f.mu.Unlock()

	if resolved || inline == nil {
		return false
	}
	return inline(ctx)
}

// Wait blocks until the future is resolved or ctx is done. A ctx error is
// reported wrapped in errors.ErrWaitCancelled; it does not affect the
// computation behind the future.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	for f.TryInline(ctx) {
	}

	if f.IsDone() {
		return f.Result()
	}
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %w", gferrors.ErrWaitCancelled, ctx.Err())
	}
}

// OnComplete registers fn to run once the future is resolved. If it already
// is, fn runs immediately on the calling goroutine; otherwise it runs on the
// goroutine that resolves the future.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	fn(v, err)
}
