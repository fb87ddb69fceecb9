package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name unless Config.Namespace says
// otherwise.
const DefaultNamespace = "goasync"

// Registry holds all metric instances for goasync components.
type Registry struct {
	// Thread Pool Metrics
	PoolSize    *prometheus.GaugeVec
	PoolAlive   *prometheus.GaugeVec
	PoolBusy    *prometheus.GaugeVec
	PoolQueued  *prometheus.GaugeVec
	WorkerFault *prometheus.CounterVec

	// Task Metrics
	TasksEnqueued         *prometheus.CounterVec
	TasksExecuted         *prometheus.CounterVec
	TasksCompleted        *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TasksInlined          *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec

	// Scheduler Metrics
	TasksScheduled   *prometheus.CounterVec
	ScheduleFailures *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by goasync components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus
// registerer and the default namespace.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, DefaultNamespace, nil)
}

// RegistryFor returns the registry described by config: DefaultRegistry when
// config asks for nothing beyond the defaults. Otherwise the registry is
// created on first use and shared by every later call with the same
// registerer, namespace and labels, so several pools may report to one
// Prometheus registry.
func RegistryFor(config Config) *Registry {
	namespace := config.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if config.Registry == nil && namespace == DefaultNamespace && len(config.Labels) == 0 {
		return DefaultRegistry
	}

	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	key := registryKey{reg: reg, namespace: namespace, labels: labelKey(config.Labels)}
	registriesMu.Lock()
	defer registriesMu.Unlock()
	if r, ok := registries[key]; ok {
		return r
	}
	r := newRegistry(reg, namespace, config.Labels)
	registries[key] = r
	return r
}

type registryKey struct {
	reg       prometheus.Registerer
	namespace string
	labels    string
}

var (
	registriesMu sync.Mutex
	registries   = make(map[registryKey]*Registry)
)

func labelKey(labels prometheus.Labels) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}

func newRegistry(reg prometheus.Registerer, namespace string, labels prometheus.Labels) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Thread Pool Metrics
		PoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "threadpool",
				Name:        "size",
				Help:        "Number of worker threads the pool was created with",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		PoolAlive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "threadpool",
				Name:        "alive_workers",
				Help:        "Number of worker threads that have not terminated",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		PoolBusy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "threadpool",
				Name:        "busy_workers",
				Help:        "Number of tasks currently executing",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		PoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "threadpool",
				Name:        "queued_tasks",
				Help:        "Number of queued tasks",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		WorkerFault: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "threadpool",
				Name:        "critical_faults_total",
				Help:        "Total number of worker threads terminated by a critical fault",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		// Task Metrics
		TasksEnqueued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "threadpool",
				Name:        "tasks_enqueued_total",
				Help:        "Total number of tasks accepted by the pool",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		TasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "threadpool",
				Name:        "tasks_executed_total",
				Help:        "Total number of tasks executed",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "threadpool",
				Name:        "tasks_completed_total",
				Help:        "Total number of tasks completed successfully",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "threadpool",
				Name:        "tasks_failed_total",
				Help:        "Total number of tasks that returned an error or panicked",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		TasksInlined: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "threadpool",
				Name:        "tasks_inlined_total",
				Help:        "Total number of tasks executed inline by a waiting worker",
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   "threadpool",
				Name:        "task_duration_seconds",
				Help:        "Time spent executing tasks",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"pool_name"},
		),

		// Scheduler Metrics
		TasksScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "scheduler",
				Name:        "tasks_scheduled_total",
				Help:        "Total number of scheduled tasks submitted to the service",
				ConstLabels: labels,
			},
			[]string{"scheduler_name"},
		),

		ScheduleFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "scheduler",
				Name:        "submit_failures_total",
				Help:        "Total number of scheduled tasks the service refused",
				ConstLabels: labels,
			},
			[]string{"scheduler_name"},
		),
	}
}
