package threadpool

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	gferrors "github.com/vnykmshr/goasync/pkg/common/errors"
	"github.com/vnykmshr/goasync/pkg/logging"
)

// WorkerState is the lifecycle state of a worker.
type WorkerState int32

const (
	WorkerStarting WorkerState = iota
	WorkerRunning
	// WorkerStopped means the worker exited after the shutdown signal.
	WorkerStopped
	// WorkerFaulted means a critical fault terminated the worker.
	WorkerFaulted
)

func (s WorkerState) String() string {
	switch s {
	case WorkerStarting:
		return "starting"
	case WorkerRunning:
		return "running"
	case WorkerStopped:
		return "stopped"
	case WorkerFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminated reports whether the worker has exited.
func (s WorkerState) Terminated() bool {
	return s == WorkerStopped || s == WorkerFaulted
}

// WorkerInfo is a snapshot of a worker's identity and state.
type WorkerInfo struct {
	Name  string
	Index int
	// ThreadID is the OS thread id, or 0 where it is not available.
	ThreadID int
	State    WorkerState
}

// worker is one goroutine locked to one OS thread.
type worker struct {
	pool  *Pool
	index int
	name  string
	tid   atomic.Int64
	state atomic.Int32
}

func newWorker(p *Pool, index int) *worker {
	return &worker{
		pool:  p,
		index: index,
		name:  fmt.Sprintf("%s-%d", p.config.Prefix, index),
	}
}

func (w *worker) info() WorkerInfo {
	return WorkerInfo{
		Name:     w.name,
		Index:    w.index,
		ThreadID: int(w.tid.Load()),
		State:    WorkerState(w.state.Load()),
	}
}

// run is the main loop for a worker.
func (w *worker) run(started *sync.WaitGroup) {
	defer w.pool.workerWg.Done()

	// Never unlocked: the runtime discards the thread when the goroutine
	// exits, so its name and priority die with it.
	runtime.LockOSThread()
	w.tid.Store(int64(threadID()))
	configureThread(w.name, w.pool.config.Priority)

	w.pool.alive.Add(1)
	w.state.Store(int32(WorkerRunning))
	logging.Logf(logging.LevelDebug, "Thread %s started", w.name)
	if w.pool.config.OnWorkerStart != nil {
		w.pool.hook("OnWorkerStart", func() { w.pool.config.OnWorkerStart(w.info()) })
	}
	started.Done()

	returned := false
	defer func() {
		if !returned {
			w.state.Store(int32(WorkerFaulted))
			logging.Logf(logging.LevelError, "Thread %s exited because a task called runtime.Goexit", w.name)
		}
		w.pool.alive.Add(-1)
		if w.pool.config.OnWorkerStop != nil {
			w.pool.hook("OnWorkerStop", func() { w.pool.config.OnWorkerStop(w.info()) })
		}
	}()

	w.loop()
	returned = true
}

func (w *worker) loop() {
	for {
		task, err := w.pool.queue.Dequeue(w.pool.shutdownCtx)
		if err != nil {
			// Shutdown signal or closed queue. Either way a clean exit.
			w.state.Store(int32(WorkerStopped))
			logging.Logf(logging.LevelDebug, "Thread %s stopped", w.name)
			return
		}

		if !claim(task) {
			// Already run inline by a waiter.
			continue
		}
		if fault := w.pool.execute(w, task, false); fault != nil {
			w.state.Store(int32(WorkerFaulted))
			logging.LogFault(logging.LevelError, "Thread "+w.name+" exited because", fault.Value, fault.Stack)
			return
		}
	}
}

// execute runs task on behalf of w and returns a non-nil fault when the task
// raised a critical fault. Ordinary failures are logged and swallowed.
func (p *Pool) execute(w *worker, task Task, inline bool) (fault *gferrors.CriticalFault) {
	info := w.info()
	if p.config.OnTaskStart != nil {
		p.hook("OnTaskStart", func() { p.config.OnTaskStart(info, task) })
	}

	p.busy.Add(1)
	start := time.Now()
	var err error
	returned := false

	defer func() {
		r := recover()
		result := Result{
			Task:     task,
			Duration: time.Since(start),
			Worker:   info,
			Inline:   inline,
		}

		switch {
		case r != nil:
			stack := debug.Stack()
			if cf, ok := r.(*gferrors.CriticalFault); ok {
				// Raised by a nested inline execution on this worker.
				fault = cf
			} else if IsCritical(r) {
				fault = &gferrors.CriticalFault{Worker: w.name, Value: r, Stack: stack}
			} else {
				result.Error = &gferrors.PanicError{Value: r, Stack: stack}
				logging.LogFault(logging.LevelError, "Exception occurred in thread "+w.name, r, stack)
			}
		case !returned:
			fault = &gferrors.CriticalFault{
				Worker: w.name,
				Value:  fmt.Errorf("runtime.Goexit called by task: %w", gferrors.ErrFatal),
			}
		case err != nil:
			result.Error = err
			logging.LogFault(logging.LevelError, "Exception occurred in thread "+w.name, err, nil)
		}
		if fault != nil {
			result.Error = fault
			result.Critical = true
		}

		p.busy.Add(-1)
		p.totalExecuted.Add(1)
		if p.config.OnTaskComplete != nil {
			p.hook("OnTaskComplete", func() { p.config.OnTaskComplete(info, result) })
		}
	}()

	err = task.Execute(withWorker(context.Background(), w))
	returned = true
	return nil
}

// hook runs a user callback. A panic in it is logged and does not reach the
// worker.
func (p *Pool) hook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogFault(logging.LevelError, "Hook "+name+" panicked in pool "+p.config.Prefix, r, debug.Stack())
		}
	}()
	fn()
}
