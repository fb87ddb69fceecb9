package threadpool

import (
	"sync/atomic"

	"github.com/vnykmshr/goasync/pkg/metrics"
)

// NewWithMetrics creates a pool that reports to Prometheus under the
// pool_name label name. Hooks already present in config still run.
func NewWithMetrics(config Config, name string, metricsConfig metrics.Config) (*Pool, error) {
	if !metricsConfig.Enabled {
		return New(config)
	}

	registry := metrics.RegistryFor(metricsConfig)
	var pool atomic.Pointer[Pool]
	instrument(&config, registry, name, &pool)

	p, err := New(config)
	if err != nil {
		return nil, err
	}
	pool.Store(p)

	registry.PoolSize.WithLabelValues(name).Set(float64(p.Size()))
	registry.PoolQueued.WithLabelValues(name).Set(float64(p.QueueLen()))
	return p, nil
}

// instrument chains metric updates in front of the hooks in config. Workers
// start before the pool pointer is published, so gauges that read the pool
// skip updates until it is.
func instrument(config *Config, registry *metrics.Registry, name string, pool *atomic.Pointer[Pool]) {
	alive := registry.PoolAlive.WithLabelValues(name)
	busy := registry.PoolBusy.WithLabelValues(name)
	queued := registry.PoolQueued.WithLabelValues(name)
	faults := registry.WorkerFault.WithLabelValues(name)
	enqueued := registry.TasksEnqueued.WithLabelValues(name)
	executed := registry.TasksExecuted.WithLabelValues(name)
	completed := registry.TasksCompleted.WithLabelValues(name)
	failed := registry.TasksFailed.WithLabelValues(name)
	inlined := registry.TasksInlined.WithLabelValues(name)
	duration := registry.TaskExecutionDuration.WithLabelValues(name)

	updateQueued := func() {
		if p := pool.Load(); p != nil {
			queued.Set(float64(p.QueueLen()))
		}
	}

	onWorkerStart := config.OnWorkerStart
	config.OnWorkerStart = func(w WorkerInfo) {
		alive.Inc()
		if onWorkerStart != nil {
			onWorkerStart(w)
		}
	}

	onWorkerStop := config.OnWorkerStop
	config.OnWorkerStop = func(w WorkerInfo) {
		alive.Dec()
		// The abandon policy empties the queue without starting tasks.
		updateQueued()
		if onWorkerStop != nil {
			onWorkerStop(w)
		}
	}

	onEnqueue := config.OnEnqueue
	config.OnEnqueue = func(task Task) {
		enqueued.Inc()
		updateQueued()
		if onEnqueue != nil {
			onEnqueue(task)
		}
	}

	onTaskStart := config.OnTaskStart
	config.OnTaskStart = func(w WorkerInfo, task Task) {
		busy.Inc()
		updateQueued()
		if onTaskStart != nil {
			onTaskStart(w, task)
		}
	}

	onTaskComplete := config.OnTaskComplete
	config.OnTaskComplete = func(w WorkerInfo, result Result) {
		busy.Dec()
		executed.Inc()
		duration.Observe(result.Duration.Seconds())
		if result.Error != nil {
			failed.Inc()
		} else {
			completed.Inc()
		}
		if result.Inline {
			inlined.Inc()
		}
		if result.Critical {
			faults.Inc()
		}
		if onTaskComplete != nil {
			onTaskComplete(w, result)
		}
	}
}
