package async

import (
	"github.com/vnykmshr/goasync/pkg/metrics"
	"github.com/vnykmshr/goasync/pkg/scheduling/threadpool"
)

// Option configures a Service.
type Option func(*options)

type options struct {
	config      threadpool.Config
	metricsName string
	metrics     metrics.Config
}

// WithPriority sets the priority of the service's worker threads.
func WithPriority(p threadpool.Priority) Option {
	return func(o *options) {
		o.config.Priority = p
	}
}

// WithThreads sets the number of worker threads. n must be positive.
func WithThreads(n int) Option {
	return func(o *options) {
		o.config.Threads = &n
	}
}

// WithShutdownPolicy decides what Dispose does with queued units.
func WithShutdownPolicy(policy threadpool.ShutdownPolicy) Option {
	return func(o *options) {
		o.config.ShutdownPolicy = policy
	}
}

// WithMetrics reports the service's pool to Prometheus under pool_name name.
func WithMetrics(name string, config metrics.Config) Option {
	return func(o *options) {
		o.metricsName = name
		o.metrics = config
	}
}

// Hooks are lifecycle callbacks forwarded to the underlying pool.
type Hooks struct {
	OnWorkerStart  func(worker threadpool.WorkerInfo)
	OnWorkerStop   func(worker threadpool.WorkerInfo)
	OnEnqueue      func(task threadpool.Task)
	OnTaskStart    func(worker threadpool.WorkerInfo, task threadpool.Task)
	OnTaskComplete func(worker threadpool.WorkerInfo, result threadpool.Result)
}

// WithHooks installs pool lifecycle callbacks.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		o.config.OnWorkerStart = h.OnWorkerStart
		o.config.OnWorkerStop = h.OnWorkerStop
		o.config.OnEnqueue = h.OnEnqueue
		o.config.OnTaskStart = h.OnTaskStart
		o.config.OnTaskComplete = h.OnTaskComplete
	}
}
