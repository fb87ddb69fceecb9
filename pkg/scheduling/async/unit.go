package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	gferrors "github.com/vnykmshr/goasync/pkg/common/errors"
	"github.com/vnykmshr/goasync/pkg/scheduling/future"
	"github.com/vnykmshr/goasync/pkg/scheduling/threadpool"
)

type unitKind uint8

const (
	kindFunc unitKind = iota
	kindAction
	kindAsyncFunc
	kindAsyncAction
)

func (k unitKind) String() string {
	switch k {
	case kindFunc:
		return "func"
	case kindAction:
		return "action"
	case kindAsyncFunc:
		return "async func"
	case kindAsyncAction:
		return "async action"
	default:
		return "unknown"
	}
}

// unit is the threadpool.Task behind every submission. It runs at most once:
// whichever of the worker loop, an inline waiter or Abandon claims it first
// wins. The pool claims it through threadpool.Claimer before executing.
type unit[T any] struct {
	kind    unitKind
	fn      func(ctx context.Context) (T, error)
	async   func(ctx context.Context) *future.Future[T]
	pool    *threadpool.Pool
	promise *future.Promise[T]
	claimed atomic.Bool
}

func (u *unit[T]) String() string {
	return "async " + u.kind.String()
}

// Claim implements threadpool.Claimer.
func (u *unit[T]) Claim() bool {
	return u.claimed.CompareAndSwap(false, true)
}

// Execute implements threadpool.Task. Faults of the computation go to the
// promise; only critical panics reach the worker.
func (u *unit[T]) Execute(ctx context.Context) error {
	switch u.kind {
	case kindFunc, kindAction:
		v, err := u.run(ctx, u.fn)
		u.promise.Complete(v, err)

	case kindAsyncFunc, kindAsyncAction:
		inner, err := u.runAsync(ctx)
		if err != nil {
			u.promise.Reject(err)
			return nil
		}
		if inner == nil {
			u.promise.Reject(gferrors.ErrNilFuture)
			return nil
		}
		// A waiter on the outer handle now helps the inner computation.
		u.promise.SetInliner(inner.TryInline)
		inner.OnComplete(func(v T, err error) {
			u.promise.Complete(v, err)
		})
	}
	return nil
}

// Abandon implements threadpool.Abandoner.
func (u *unit[T]) Abandon(err error) {
	if u.Claim() {
		u.promise.Reject(err)
	}
}

// inline runs the unit on the waiting worker when the pool allows it.
func (u *unit[T]) inline(ctx context.Context) bool {
	if u.claimed.Load() {
		return false
	}
	return u.pool.TryExecuteInline(ctx, u)
}

func (u *unit[T]) runAsync(ctx context.Context) (*future.Future[T], error) {
	var inner *future.Future[T]
	_, err := u.run(ctx, func(ctx context.Context) (T, error) {
		inner = u.async(ctx)
		var zero T
		return zero, nil
	})
	return inner, err
}

// run calls fn and converts a panic into a PanicError. Critical panics
// resolve the promise and are then re-raised so the worker terminates.
func (u *unit[T]) run(ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	returned := false
	defer func() {
		if returned {
			return
		}
		r := recover()
		if r == nil {
			// runtime.Goexit; the worker dies with this goroutine.
			u.promise.Reject(fmt.Errorf("computation called runtime.Goexit: %w", gferrors.ErrFatal))
			return
		}

		fault := &gferrors.PanicError{Value: r, Stack: debug.Stack()}
		if threadpool.IsCritical(r) {
			u.promise.Reject(fault)
			panic(r)
		}
		err = fault
	}()

	v, err = fn(ctx)
	returned = true
	return v, err
}
