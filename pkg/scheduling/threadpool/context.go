package threadpool

import "context"

type workerKey struct{}

func withWorker(ctx context.Context, w *worker) context.Context {
	return context.WithValue(ctx, workerKey{}, w)
}

// workerFrom returns the worker of p that ctx was issued to, provided the
// caller is running on that worker's thread.
func (p *Pool) workerFrom(ctx context.Context) (*worker, bool) {
	if ctx == nil {
		return nil, false
	}
	w, ok := ctx.Value(workerKey{}).(*worker)
	if !ok || w.pool != p {
		return nil, false
	}
	if !onThread(w) {
		return nil, false
	}
	return w, true
}

// WorkerFromContext returns the worker executing the task that received ctx.
func WorkerFromContext(ctx context.Context) (WorkerInfo, bool) {
	if ctx == nil {
		return WorkerInfo{}, false
	}
	w, ok := ctx.Value(workerKey{}).(*worker)
	if !ok {
		return WorkerInfo{}, false
	}
	return w.info(), true
}

// IsWorker reports whether ctx was issued by p to a task running on the
// calling thread.
func (p *Pool) IsWorker(ctx context.Context) bool {
	_, ok := p.workerFrom(ctx)
	return ok
}
