package async

import (
	"context"
	"sync/atomic"

	gferrors "github.com/vnykmshr/goasync/pkg/common/errors"
	"github.com/vnykmshr/goasync/pkg/common/validation"
	"github.com/vnykmshr/goasync/pkg/scheduling/future"
	"github.com/vnykmshr/goasync/pkg/scheduling/threadpool"
)

// Service submits computations to a dedicated thread pool and hands back a
// Future for each. It owns the pool: disposing one disposes the other.
type Service struct {
	pool     *threadpool.Pool
	disposed atomic.Bool
}

// New creates a Service whose worker threads are named "<prefix>-<index>".
// Without WithThreads the pool has one thread per CPU.
func New(prefix string, opts ...Option) (*Service, error) {
	o := options{config: threadpool.DefaultConfig()}
	o.config.Prefix = prefix
	for _, opt := range opts {
		opt(&o)
	}

	var (
		pool *threadpool.Pool
		err  error
	)
	if o.metrics.Enabled {
		pool, err = threadpool.NewWithMetrics(o.config, o.metricsName, o.metrics)
	} else {
		pool, err = threadpool.New(o.config)
	}
	if err != nil {
		return nil, err
	}
	return &Service{pool: pool}, nil
}

// NewFromConfig creates a Service from a complete pool configuration.
func NewFromConfig(config threadpool.Config) (*Service, error) {
	pool, err := threadpool.New(config)
	if err != nil {
		return nil, err
	}
	return &Service{pool: pool}, nil
}

// Submit runs fn on the service and returns a Future for its result. An
// error returned by fn, or a panic escaping it, resolves the Future with
// that fault.
//
// Submit fails with errors.ErrDisposed once the service is disposed. The
// check is best-effort: a Submit racing Dispose may still be accepted, in
// which case the unit runs or is abandoned according to the shutdown policy.
func Submit[T any](s *Service, fn func(ctx context.Context) (T, error)) (*future.Future[T], error) {
	if fn == nil {
		return nil, validation.ValidateNotNil("async", "fn", nil)
	}
	return submit(s, "Submit", &unit[T]{kind: kindFunc, fn: fn})
}

// SubmitAsync runs fn on the service. The worker is released as soon as fn
// returns its Future; the returned Future resolves with that Future's
// outcome. A nil Future from fn is a fault (errors.ErrNilFuture).
func SubmitAsync[T any](s *Service, fn func(ctx context.Context) *future.Future[T]) (*future.Future[T], error) {
	if fn == nil {
		return nil, validation.ValidateNotNil("async", "fn", nil)
	}
	return submit(s, "SubmitAsync", &unit[T]{kind: kindAsyncFunc, async: fn})
}

// Go runs an action on the service. The returned Future resolves once the
// action has finished.
func (s *Service) Go(fn func(ctx context.Context) error) (*future.Future[struct{}], error) {
	if fn == nil {
		return nil, validation.ValidateNotNil("async", "fn", nil)
	}
	return submit(s, "Go", &unit[struct{}]{
		kind: kindAction,
		fn: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx)
		},
	})
}

// GoAsync runs an asynchronous action on the service. The returned Future
// resolves once the Future produced by fn has.
func (s *Service) GoAsync(fn func(ctx context.Context) *future.Future[struct{}]) (*future.Future[struct{}], error) {
	if fn == nil {
		return nil, validation.ValidateNotNil("async", "fn", nil)
	}
	return submit(s, "GoAsync", &unit[struct{}]{kind: kindAsyncAction, async: fn})
}

func submit[T any](s *Service, op string, u *unit[T]) (*future.Future[T], error) {
	if s.disposed.Load() {
		return nil, gferrors.NewOperationError("async", op, gferrors.ErrDisposed).
			WithContext("service " + s.pool.Prefix())
	}

	u.pool = s.pool
	u.promise = future.NewPromise[T]()
	u.promise.SetInliner(u.inline)

	if err := s.pool.Enqueue(u); err != nil {
		return nil, gferrors.NewOperationError("async", op, err).
			WithContext("service " + s.pool.Prefix())
	}
	return u.promise.Future(), nil
}

// Pool returns the service's thread pool.
func (s *Service) Pool() *threadpool.Pool {
	return s.pool
}

// Pending returns the units queued but not yet started. Diagnostics only.
func (s *Service) Pending() []threadpool.Task {
	return s.pool.Pending()
}

// Disposed reports whether Dispose has been called.
func (s *Service) Disposed() bool {
	return s.disposed.Load()
}

// Dispose stops the service and blocks until its worker threads have
// exited. It is idempotent and must not be called from a unit running on
// this service.
func (s *Service) Dispose() {
	s.disposed.Store(true)
	s.pool.Dispose()
}

// Close implements io.Closer.
func (s *Service) Close() error {
	s.Dispose()
	return nil
}
