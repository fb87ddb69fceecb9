package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	gferrors "github.com/vnykmshr/goasync/pkg/common/errors"
	"github.com/vnykmshr/goasync/pkg/common/validation"
	"github.com/vnykmshr/goasync/pkg/logging"
	"github.com/vnykmshr/goasync/pkg/metrics"
	"github.com/vnykmshr/goasync/pkg/scheduling/async"
	"github.com/vnykmshr/goasync/pkg/scheduling/future"
)

// Job is the work a scheduled task runs on each firing.
type Job func(ctx context.Context) error

// Submitter runs actions asynchronously. *async.Service implements it.
type Submitter interface {
	Go(fn func(ctx context.Context) error) (*future.Future[struct{}], error)
}

// Task represents a scheduled task.
type Task struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // Zero for one-time and cron tasks
	Cron     string        // Empty unless scheduled by cron expression
	Created  time.Time
}

// Scheduler fires jobs at a time, after a delay, at an interval or on a cron
// schedule, submitting each firing to a Submitter.
type Scheduler interface {
	// Basic scheduling
	Schedule(id string, job Job, runAt time.Time) error
	ScheduleAfter(id string, job Job, delay time.Duration) error
	ScheduleRepeating(id string, job Job, interval time.Duration) error

	// Cron scheduling
	ScheduleCron(id string, cronExpr string, job Job) error

	// Task management
	Cancel(id string) bool
	CancelAll()
	List() []Task
	NextRun(id string) (time.Time, bool)

	// Lifecycle
	Start() error
	Stop() <-chan struct{}
}

// BackoffJob wraps a job with retry logic.
type BackoffJob struct {
	Job          Job
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Run runs the job, retrying failures with exponential backoff.
func (bj BackoffJob) Run(ctx context.Context) error {
	var lastErr error
	delay := bj.InitialDelay

	for attempt := 0; attempt <= bj.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = bj.Job(ctx)
		if lastErr == nil {
			return nil
		}

		// Double delay for next attempt
		delay *= 2
		if delay > bj.MaxDelay {
			delay = bj.MaxDelay
		}
	}

	return lastErr
}

// Config holds scheduler configuration.
type Config struct {
	// Service receives every firing. If nil the scheduler creates and owns
	// a four-thread service named after the scheduler.
	Service      Submitter
	Name         string         // Scheduler name for logs and metrics (default: "scheduler")
	Location     *time.Location // For cron scheduling
	TickInterval time.Duration  // How often to check for ready tasks (default: 50ms)
	MaxTasks     int            // Maximum number of scheduled tasks (default: 10000)
	Metrics      metrics.Config
}

type scheduledTask struct {
	id           string
	job          Job
	runAt        time.Time
	interval     time.Duration
	cronExpr     string
	cronSchedule cron.Schedule
	created      time.Time
}

type scheduler struct {
	service    Submitter
	ownService *async.Service
	name       string
	location   *time.Location
	tick       time.Duration
	maxTasks   int
	cronParser cron.Parser

	// Nil unless metrics are enabled.
	scheduled prometheus.Counter
	failures  prometheus.Counter

	mu      sync.RWMutex
	tasks   map[string]*scheduledTask
	done    chan struct{}
	stopped chan struct{}
	running bool
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCron reports whether expr is a valid six-field (seconds first) cron
// expression or descriptor such as "@hourly".
func ValidateCron(expr string) error {
	if expr == "" {
		return validation.ValidateNotEmpty("scheduler", "cron", expr)
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return gferrors.NewValidationError("scheduler", "cron", expr, err.Error()).
			WithHint("use six fields: second minute hour day-of-month month day-of-week")
	}
	return nil
}

// New creates a scheduler with default configuration and its own service.
func New() (Scheduler, error) {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) (Scheduler, error) {
	name := cfg.Name
	if name == "" {
		name = "scheduler"
	}

	service := cfg.Service
	var own *async.Service
	if service == nil {
		svc, err := async.New(name, async.WithThreads(4))
		if err != nil {
			return nil, err
		}
		service, own = svc, svc
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = 50 * time.Millisecond
	}

	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 10000
	}

	s := &scheduler{
		service:    service,
		ownService: own,
		name:       name,
		location:   location,
		tick:       tickInterval,
		maxTasks:   maxTasks,
		cronParser: cronParser,
		tasks:      make(map[string]*scheduledTask),
	}

	if cfg.Metrics.Enabled {
		registry := metrics.RegistryFor(cfg.Metrics)
		s.scheduled = registry.TasksScheduled.WithLabelValues(name)
		s.failures = registry.ScheduleFailures.WithLabelValues(name)
	}

	return s, nil
}

func validateTask(id string, job Job) error {
	if err := validation.ValidateNotEmpty("scheduler", "id", id); err != nil {
		return err
	}
	if len(id) > 255 {
		return gferrors.NewValidationError("scheduler", "id", id, "too long").
			WithHint("use at most 255 characters")
	}
	if job == nil {
		return validation.ValidateNotNil("scheduler", "job", nil)
	}
	return nil
}

// add registers t under the lock.
func (s *scheduler) add(t *scheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.id]; exists {
		return fmt.Errorf("task with ID %q already exists, use a different ID or cancel the existing task first", t.id)
	}

	if len(s.tasks) >= s.maxTasks {
		return fmt.Errorf("cannot schedule task: maximum number of tasks (%d) reached", s.maxTasks)
	}

	s.tasks[t.id] = t
	return nil
}

func (s *scheduler) Schedule(id string, job Job, runAt time.Time) error {
	if err := validateTask(id, job); err != nil {
		return err
	}
	if runAt.IsZero() {
		return gferrors.NewValidationError("scheduler", "runAt", runAt, "cannot be zero")
	}

	return s.add(&scheduledTask{
		id:      id,
		job:     job,
		runAt:   runAt,
		created: time.Now(),
	})
}

func (s *scheduler) ScheduleAfter(id string, job Job, delay time.Duration) error {
	return s.Schedule(id, job, time.Now().Add(delay))
}

func (s *scheduler) ScheduleRepeating(id string, job Job, interval time.Duration) error {
	if err := validateTask(id, job); err != nil {
		return err
	}
	if interval <= 0 {
		return gferrors.NewValidationError("scheduler", "interval", interval, "must be positive")
	}

	now := time.Now()
	return s.add(&scheduledTask{
		id:       id,
		job:      job,
		runAt:    now,
		interval: interval,
		created:  now,
	})
}

func (s *scheduler) ScheduleCron(id string, cronExpr string, job Job) error {
	if err := validateTask(id, job); err != nil {
		return err
	}
	if err := ValidateCron(cronExpr); err != nil {
		return err
	}
	schedule, _ := s.cronParser.Parse(cronExpr)

	now := time.Now()
	return s.add(&scheduledTask{
		id:           id,
		job:          job,
		runAt:        schedule.Next(now.In(s.location)),
		cronExpr:     cronExpr,
		cronSchedule: schedule,
		created:      now,
	})
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		delete(s.tasks, id)
		return true
	}
	return false
}

func (s *scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*scheduledTask)
}

func (s *scheduler) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, Task{
			ID:       t.id,
			RunAt:    t.runAt,
			Interval: t.interval,
			Cron:     t.cronExpr,
			Created:  t.created,
		})
	}

	// Sort by run time
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].RunAt.Before(tasks[j].RunAt)
	})

	return tasks
}

func (s *scheduler) NextRun(id string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return time.Time{}, false
	}
	return t.runAt, true
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}

	s.running = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})

	go s.run(time.NewTicker(s.tick), s.done, s.stopped)
	logging.Logf(logging.LevelInformation, "Scheduler %s started", s.name)
	return nil
}

// Stop halts the tick loop. The returned channel is closed once the loop has
// exited and, when the scheduler owns its service, that service is disposed.
// Firings already submitted are not cancelled.
func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	loopStopped := s.stopped
	if s.running {
		s.running = false
		close(s.done)
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if loopStopped != nil {
			<-loopStopped
		}
		if s.ownService != nil {
			s.ownService.Dispose()
		}
	}()

	return stopped
}

func (s *scheduler) run(ticker *time.Ticker, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			logging.Logf(logging.LevelInformation, "Scheduler %s stopped", s.name)
			return
		case <-ticker.C:
			s.processReadyTasks(time.Now())
		}
	}
}

func (s *scheduler) processReadyTasks(now time.Time) {
	s.mu.Lock()
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return
	}

	readyTasks := make([]*scheduledTask, 0, len(s.tasks))

	for id, task := range s.tasks {
		if !now.Before(task.runAt) {
			readyTasks = append(readyTasks, task)

			// Handle rescheduling
			if task.interval > 0 {
				task.runAt = now.Add(task.interval)
			} else if task.cronSchedule != nil {
				task.runAt = task.cronSchedule.Next(now.In(s.location))
			} else {
				delete(s.tasks, id)
			}
		}
	}
	s.mu.Unlock()

	for _, task := range readyTasks {
		s.fire(task.id, task.job)
	}
}

// fire submits one run of job. A refused submission is logged and the
// scheduler carries on.
func (s *scheduler) fire(id string, job Job) {
	f, err := s.service.Go(job)
	if err != nil {
		if s.failures != nil {
			s.failures.Inc()
		}
		logging.Logf(logging.LevelWarning, "Scheduler %s could not submit task %s: %v", s.name, id, err)
		return
	}
	if s.scheduled != nil {
		s.scheduled.Inc()
	}

	f.OnComplete(func(_ struct{}, err error) {
		if err != nil {
			logging.Logf(logging.LevelWarning, "Scheduled task %s failed: %v", id, err)
		}
	})
}
