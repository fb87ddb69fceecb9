// Package metrics provides Prometheus instrumentation for goasync components.
//
// # Overview
//
// The metrics package instruments:
//   - Thread pools (size, alive and busy workers, queued tasks, critical faults)
//   - Task execution (enqueued, executed, completed, failed, inlined, duration)
//   - Schedulers (scheduled submissions and refused submissions)
//
// # Quick Start
//
// Enable metrics through the metrics-aware constructors:
//
//	pool, err := threadpool.NewWithMetrics(cfg, "render", metrics.DefaultConfig())
//
//	svc, err := async.New("render", async.WithMetrics("render", metrics.DefaultConfig()))
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":9090", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	config := metrics.Config{
//		Enabled:  true,
//		Registry: registry,
//	}
//
// # Available Metrics
//
// ## Thread Pool Metrics
//
//   - goasync_threadpool_size: Number of worker threads the pool was created with
//   - goasync_threadpool_alive_workers: Worker threads that have not terminated
//   - goasync_threadpool_busy_workers: Tasks currently executing
//   - goasync_threadpool_queued_tasks: Number of queued tasks
//   - goasync_threadpool_critical_faults_total: Workers terminated by a critical fault
//   - goasync_threadpool_tasks_enqueued_total: Tasks accepted by the pool
//   - goasync_threadpool_tasks_executed_total: Tasks executed
//   - goasync_threadpool_tasks_completed_total: Tasks completed successfully
//   - goasync_threadpool_tasks_failed_total: Tasks that returned an error or panicked
//   - goasync_threadpool_tasks_inlined_total: Tasks run inline by a waiting worker
//   - goasync_threadpool_task_duration_seconds: Time spent executing tasks
//
// ## Scheduler Metrics
//
//   - goasync_scheduler_tasks_scheduled_total: Scheduled tasks submitted
//   - goasync_scheduler_submit_failures_total: Scheduled tasks the service refused
//
// # Labels
//
//   - pool_name: User-provided name for the pool instance
//   - scheduler_name: User-provided name for the scheduler instance
//
// Config.Labels adds constant labels to every metric.
package metrics
