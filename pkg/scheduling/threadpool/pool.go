package threadpool

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	gferrors "github.com/vnykmshr/goasync/pkg/common/errors"
	"github.com/vnykmshr/goasync/pkg/common/validation"
	"github.com/vnykmshr/goasync/pkg/logging"
	"github.com/vnykmshr/goasync/pkg/scheduling/workqueue"
)

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task. The context identifies the executing worker
	// and is not cancelled by pool shutdown.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Abandoner is implemented by tasks that must be told when the pool drops
// them without running them (ShutdownAbandon).
type Abandoner interface {
	Abandon(err error)
}

// Result describes one finished task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Error is the error returned by the task, or the recovered panic
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// Worker identifies which worker executed the task
	Worker WorkerInfo

	// Inline is true when the task ran through TryExecuteInline
	Inline bool

	// Critical is true when the task's fault terminated the worker
	Critical bool
}

// Pool is a fixed set of worker threads consuming one shared FIFO queue.
type Pool struct {
	config  Config
	threads int

	queue   *workqueue.Queue[Task]
	workers []*worker

	// shutdownCtx is the pool-wide single-fire shutdown signal.
	shutdownCtx context.Context
	shutdown    context.CancelFunc

	closeOnce  sync.Once
	disposed   atomic.Bool
	workerWg   sync.WaitGroup
	terminated chan struct{}

	busy          atomic.Int32
	alive         atomic.Int32
	totalEnqueued atomic.Int64
	totalExecuted atomic.Int64
}

// New creates a pool and starts its workers. It returns once every worker
// thread is running.
func New(config Config) (*Pool, error) {
	threads, err := config.resolve()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config:      config,
		threads:     threads,
		queue:       workqueue.New[Task](),
		workers:     make([]*worker, threads),
		shutdownCtx: ctx,
		shutdown:    cancel,
		terminated:  make(chan struct{}),
	}

	var started sync.WaitGroup
	for i := 0; i < threads; i++ {
		w := newWorker(p, i)
		p.workers[i] = w
		p.workerWg.Add(1)
		started.Add(1)
		go w.run(&started)
	}
	started.Wait()

	logging.Logf(logging.LevelInformation, "Pool %s started with %d threads", config.Prefix, threads)
	return p, nil
}

// NewWithThreads creates a pool with an explicit thread count. Unlike a
// Config with Threads left nil, a count of 0 is rejected.
func NewWithThreads(prefix string, priority Priority, threads int) (*Pool, error) {
	return New(Config{
		Prefix:   prefix,
		Priority: priority,
		Threads:  &threads,
	})
}

// Enqueue adds task to the tail of the queue.
// It fails with errors.ErrDisposed once the pool has begun closing.
func (p *Pool) Enqueue(task Task) error {
	if err := validation.ValidateNotNil("threadpool", "task", task); err != nil {
		return err
	}
	if p.disposed.Load() {
		return gferrors.NewOperationError("threadpool", "Enqueue", gferrors.ErrDisposed).
			WithContext("pool " + p.config.Prefix)
	}
	if err := p.queue.Enqueue(task); err != nil {
		return gferrors.NewOperationError("threadpool", "Enqueue", err).
			WithContext("pool " + p.config.Prefix)
	}

	p.totalEnqueued.Add(1)
	if p.config.OnEnqueue != nil {
		p.hook("OnEnqueue", func() { p.config.OnEnqueue(task) })
	}
	return nil
}

// Claimer is implemented by tasks that can be reached by more than one
// executor, such as the worker loop and an inline waiter. The pool runs such
// a task only if Claim returns true, and skips it silently otherwise.
type Claimer interface {
	Claim() bool
}

func claim(task Task) bool {
	if c, ok := task.(Claimer); ok {
		return c.Claim()
	}
	return true
}

// TryExecuteInline runs task synchronously on the calling goroutine and
// returns true, but only when ctx belongs to a task currently running on one
// of this pool's workers and the pool has not terminated. Inline execution
// stays available while the pool drains, so a draining task can still run
// the siblings it waits on. It returns false and does nothing otherwise, or
// when a Claimer task was already claimed.
//
// A task that waits on a sibling task queued on the same pool can use this to
// run the sibling itself instead of blocking a worker on it.
func (p *Pool) TryExecuteInline(ctx context.Context, task Task) bool {
	if task == nil || p.terminatedNow() {
		return false
	}
	w, ok := p.workerFrom(ctx)
	if !ok || !claim(task) {
		return false
	}

	if fault := p.execute(w, task, true); fault != nil {
		// Hand the fault to the task running underneath so the worker loop
		// observes it.
		panic(fault)
	}
	return true
}

func (p *Pool) terminatedNow() bool {
	select {
	case <-p.terminated:
		return true
	default:
		return false
	}
}

// Pending returns the tasks queued but not yet started. The snapshot is not
// atomic with respect to running workers and is meant for diagnostics.
func (p *Pool) Pending() []Task {
	return p.queue.Snapshot()
}

// Shutdown fires the shutdown signal and stops accepting tasks without
// waiting for workers to exit. It is idempotent and safe to call from a task.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.disposed.Store(true)
		p.queue.Close()

		var abandoned []Task
		if p.config.ShutdownPolicy == ShutdownAbandon {
			abandoned = p.queue.Drain()
		}
		p.shutdown()

		logging.Logf(logging.LevelInformation, "Pool %s closing", p.config.Prefix)

		if len(abandoned) > 0 {
			logging.Logf(logging.LevelWarning, "Pool %s abandoned %d queued tasks", p.config.Prefix, len(abandoned))
			for _, task := range abandoned {
				if a, ok := task.(Abandoner); ok {
					a.Abandon(gferrors.ErrDisposed)
				}
			}
		}

		go func() {
			p.workerWg.Wait()
			logging.Logf(logging.LevelInformation, "Pool %s terminated", p.config.Prefix)
			close(p.terminated)
		}()
	})
}

// Dispose shuts the pool down and blocks until every worker has exited.
// Tasks already running are never interrupted. Queued tasks are executed or
// abandoned according to the configured ShutdownPolicy. Dispose is
// idempotent. It must not be called from a task running on this pool.
func (p *Pool) Dispose() {
	p.Shutdown()
	<-p.terminated
}

// Close implements io.Closer.
func (p *Pool) Close() error {
	p.Dispose()
	return nil
}

// Done returns a channel closed once every worker has exited.
func (p *Pool) Done() <-chan struct{} {
	return p.terminated
}

// Closing returns a channel closed when the shutdown signal fires.
func (p *Pool) Closing() <-chan struct{} {
	return p.shutdownCtx.Done()
}

// Disposed reports whether the pool has begun closing.
func (p *Pool) Disposed() bool {
	return p.disposed.Load()
}

// Prefix returns the thread name prefix.
func (p *Pool) Prefix() string {
	return p.config.Prefix
}

// Size returns the number of workers the pool was created with.
func (p *Pool) Size() int {
	return p.threads
}

// Alive returns the number of workers that have not terminated.
func (p *Pool) Alive() int {
	return int(p.alive.Load())
}

// Busy returns the number of tasks currently executing, inline executions
// included.
func (p *Pool) Busy() int {
	return int(p.busy.Load())
}

// QueueLen returns the number of queued tasks.
func (p *Pool) QueueLen() int {
	return p.queue.Len()
}

// TotalEnqueued returns the number of tasks accepted by Enqueue.
func (p *Pool) TotalEnqueued() int64 {
	return p.totalEnqueued.Load()
}

// TotalExecuted returns the number of task executions that finished,
// successfully or not.
func (p *Pool) TotalExecuted() int64 {
	return p.totalExecuted.Load()
}

// Workers returns a snapshot of every worker's identity and state.
func (p *Pool) Workers() []WorkerInfo {
	infos := make([]WorkerInfo, len(p.workers))
	for i, w := range p.workers {
		infos[i] = w.info()
	}
	return infos
}

// DefaultThreads is the thread count used when Config.Threads is nil.
func DefaultThreads() int {
	return runtime.NumCPU()
}
