package threadpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/goasync/internal/testutil"
	gferrors "github.com/vnykmshr/goasync/pkg/common/errors"
	"github.com/vnykmshr/goasync/pkg/logging"
)

func newPool(t *testing.T, prefix string, threads int) *Pool {
	t.Helper()
	p, err := New(Config{Prefix: prefix, Threads: &threads})
	require.NoError(t, err)
	t.Cleanup(p.Dispose)
	return p
}

// gate is a task that blocks until released.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) Execute(ctx context.Context) error {
	close(g.started)
	<-g.release
	return nil
}

func TestNew(t *testing.T) {
	intp := func(n int) *int { return &n }

	tests := []struct {
		name    string
		config  Config
		want    int
		wantErr bool
	}{
		{"default threads", Config{Prefix: "T"}, runtime.NumCPU(), false},
		{"single worker", Config{Prefix: "T", Threads: intp(1)}, 1, false},
		{"four workers", Config{Prefix: "T", Threads: intp(4)}, 4, false},
		{"lowest priority", Config{Prefix: "T", Threads: intp(1), Priority: PriorityLowest}, 1, false},
		{"zero workers", Config{Prefix: "T", Threads: intp(0)}, 0, true},
		{"negative workers", Config{Prefix: "T", Threads: intp(-1)}, 0, true},
		{"empty prefix", Config{Threads: intp(1)}, 0, true},
		{"priority out of range", Config{Prefix: "T", Threads: intp(1), Priority: 7}, 0, true},
		{"policy out of range", Config{Prefix: "T", Threads: intp(1), ShutdownPolicy: 9}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, gferrors.ErrInvalidConfiguration))
				assert.True(t, gferrors.IsValidationError(err))
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			defer p.Dispose()
			assert.Equal(t, tt.want, p.Size())
		})
	}
}

func TestNewWithThreads(t *testing.T) {
	_, err := NewWithThreads("T", PriorityNormal, 0)
	require.Error(t, err)
	assert.True(t, gferrors.IsValidationError(err))

	p, err := NewWithThreads("T", PriorityBelowNormal, 2)
	require.NoError(t, err)
	defer p.Dispose()
	assert.Equal(t, 2, p.Size())
	assert.Equal(t, "T", p.Prefix())
}

func TestNewStartsEveryWorker(t *testing.T) {
	var started atomic.Int32
	threads := 4
	p, err := New(Config{
		Prefix:        "T",
		Threads:       &threads,
		OnWorkerStart: func(WorkerInfo) { started.Add(1) },
	})
	require.NoError(t, err)
	defer p.Dispose()

	// Every worker is running by the time New returns.
	assert.Equal(t, int32(4), started.Load())
	assert.Equal(t, 4, p.Alive())

	infos := p.Workers()
	require.Len(t, infos, 4)
	for i, info := range infos {
		assert.Equal(t, i, info.Index)
		assert.Equal(t, fmt.Sprintf("T-%d", i), info.Name)
		assert.Equal(t, WorkerRunning, info.State)
	}
}

func TestNewLogsThreadStart(t *testing.T) {
	rec := testutil.RecordLogs(t)
	newPool(t, "T", 2)

	assert.True(t, rec.Has(logging.LevelDebug, "Thread T-0 started"))
	assert.True(t, rec.Has(logging.LevelDebug, "Thread T-1 started"))
}

func TestEnqueueNilTask(t *testing.T) {
	p := newPool(t, "T", 1)
	err := p.Enqueue(nil)
	require.Error(t, err)
	assert.True(t, gferrors.IsValidationError(err))
}

func TestFIFOOrderSingleWorker(t *testing.T) {
	p := newPool(t, "T", 1)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})))
	}
	wg.Wait()

	for i, v := range order {
		require.Equal(t, i, v)
	}
	assert.Equal(t, int64(100), p.TotalEnqueued())
	testutil.Eventually(t, func() bool { return p.TotalExecuted() == 100 }, time.Second, time.Millisecond)
}

func TestTwoWorkersFiveTasks(t *testing.T) {
	p := newPool(t, "T", 2)

	const unit = 100 * time.Millisecond
	results := make(chan int, 5)
	start := time.Now()
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
			time.Sleep(unit)
			results <- i
			return nil
		})))
	}

	got := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		select {
		case v := <-results:
			got = append(got, v)
		case <-time.After(testutil.TestTimeout):
			t.Fatal("timed out waiting for results")
		}
	}
	elapsed := time.Since(start)

	sort.Ints(got)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	// ceil(5/2) = 3 rounds on two workers.
	assert.GreaterOrEqual(t, elapsed, 3*unit)
	assert.Less(t, elapsed, 5*unit)
}

func TestFaultThenNormal(t *testing.T) {
	rec := testutil.RecordLogs(t)
	p := newPool(t, "T", 1)

	done := make(chan struct{})
	require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
		panic("boom")
	})))
	require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
		close(done)
		return nil
	})))

	testutil.WaitClosed(t, done, testutil.TestTimeout)
	assert.Equal(t, 1, p.Alive())
	assert.True(t, rec.Has(logging.LevelError, "Exception occurred in thread T-0"))
	assert.False(t, rec.Has(logging.LevelError, "exited because"))
}

func TestReturnedErrorIsLogged(t *testing.T) {
	rec := testutil.RecordLogs(t)
	threads := 1
	results := make(chan Result, 1)
	p, err := New(Config{
		Prefix:         "T",
		Threads:        &threads,
		OnTaskComplete: func(_ WorkerInfo, r Result) { results <- r },
	})
	require.NoError(t, err)
	defer p.Dispose()

	require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
		return errors.New("task failed")
	})))

	r := <-results
	assert.EqualError(t, r.Error, "task failed")
	assert.Equal(t, "T-0", r.Worker.Name)
	assert.False(t, r.Inline)
	assert.True(t, rec.Has(logging.LevelError, "Exception occurred in thread T-0"))
	assert.True(t, rec.Has(logging.LevelError, "task failed"))
	assert.Equal(t, 1, p.Alive())
}

func TestPanicResultCarriesStack(t *testing.T) {
	testutil.RecordLogs(t)
	threads := 1
	results := make(chan Result, 1)
	p, err := New(Config{
		Prefix:         "T",
		Threads:        &threads,
		OnTaskComplete: func(_ WorkerInfo, r Result) { results <- r },
	})
	require.NoError(t, err)
	defer p.Dispose()

	require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
		var m map[string]int
		m["x"] = 1 // assignment to nil map
		return nil
	})))

	r := <-results
	var pe *gferrors.PanicError
	require.True(t, errors.As(r.Error, &pe))
	assert.NotEmpty(t, pe.Stack)
	assert.False(t, r.Critical)
}

func TestDisposeDrainsQueuedTasks(t *testing.T) {
	p, err := NewWithThreads("T", PriorityNormal, 1)
	require.NoError(t, err)

	g := newGate()
	require.NoError(t, p.Enqueue(g))
	<-g.started

	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})))
	}

	disposed := make(chan struct{})
	go func() {
		p.Dispose()
		close(disposed)
	}()

	testutil.WaitClosed(t, p.Closing(), time.Second)
	// The running task holds Dispose open.
	testutil.NotClosedWithin(t, disposed, 50*time.Millisecond)

	err = p.Enqueue(TaskFunc(func(ctx context.Context) error { return nil }))
	assert.True(t, gferrors.IsDisposed(err))

	close(g.release)
	testutil.WaitClosed(t, disposed, testutil.TestTimeout)

	assert.Equal(t, int32(3), ran.Load())
	assert.Equal(t, 0, p.Alive())
	for _, w := range p.Workers() {
		assert.Equal(t, WorkerStopped, w.State)
	}
	testutil.WaitClosed(t, p.Done(), time.Second)
}

type abandonTask struct {
	ran       atomic.Bool
	abandoned chan error
}

func (a *abandonTask) Execute(ctx context.Context) error {
	a.ran.Store(true)
	return nil
}

func (a *abandonTask) Abandon(err error) {
	a.abandoned <- err
}

func TestDisposeAbandonsQueuedTasks(t *testing.T) {
	threads := 1
	p, err := New(Config{Prefix: "T", Threads: &threads, ShutdownPolicy: ShutdownAbandon})
	require.NoError(t, err)

	g := newGate()
	require.NoError(t, p.Enqueue(g))
	<-g.started

	tasks := make([]*abandonTask, 3)
	for i := range tasks {
		tasks[i] = &abandonTask{abandoned: make(chan error, 1)}
		require.NoError(t, p.Enqueue(tasks[i]))
	}

	disposed := make(chan struct{})
	go func() {
		p.Dispose()
		close(disposed)
	}()

	for _, task := range tasks {
		select {
		case err := <-task.abandoned:
			assert.True(t, gferrors.IsDisposed(err))
		case <-time.After(testutil.TestTimeout):
			t.Fatal("task was not abandoned")
		}
	}
	testutil.NotClosedWithin(t, disposed, 50*time.Millisecond)

	close(g.release)
	testutil.WaitClosed(t, disposed, testutil.TestTimeout)

	for _, task := range tasks {
		assert.False(t, task.ran.Load())
	}
	assert.Empty(t, p.Pending())
}

func TestDisposeIsIdempotent(t *testing.T) {
	p, err := NewWithThreads("T", PriorityNormal, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Dispose()
		}()
	}
	wg.Wait()

	p.Dispose()
	assert.NoError(t, p.Close())
	assert.True(t, p.Disposed())
	assert.Equal(t, 0, p.Alive())
}

func TestShutdownFromTask(t *testing.T) {
	p, err := NewWithThreads("T", PriorityNormal, 2)
	require.NoError(t, err)

	require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
		p.Shutdown()
		return nil
	})))

	testutil.WaitClosed(t, p.Done(), testutil.TestTimeout)
	p.Dispose()
}

func TestPendingSnapshot(t *testing.T) {
	p := newPool(t, "T", 1)

	g := newGate()
	require.NoError(t, p.Enqueue(g))
	<-g.started
	defer close(g.release)

	a := TaskFunc(func(ctx context.Context) error { return nil })
	require.NoError(t, p.Enqueue(a))
	require.NoError(t, p.Enqueue(a))

	assert.Len(t, p.Pending(), 2)
	assert.Equal(t, 2, p.QueueLen())
	assert.Equal(t, 1, p.Busy())
}

func TestTryExecuteInline(t *testing.T) {
	p := newPool(t, "T", 1)
	other := newPool(t, "O", 1)

	t.Run("outside any worker", func(t *testing.T) {
		ran := false
		ok := p.TryExecuteInline(context.Background(), TaskFunc(func(ctx context.Context) error {
			ran = true
			return nil
		}))
		assert.False(t, ok)
		assert.False(t, ran)
	})

	t.Run("from a worker of the pool", func(t *testing.T) {
		type outcome struct {
			ok          bool
			outer, nest WorkerInfo
		}
		out := make(chan outcome, 1)
		require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
			var o outcome
			o.outer, _ = WorkerFromContext(ctx)
			o.ok = p.TryExecuteInline(ctx, TaskFunc(func(inner context.Context) error {
				o.nest, _ = WorkerFromContext(inner)
				return nil
			}))
			out <- o
			return nil
		})))

		o := <-out
		assert.True(t, o.ok)
		assert.Equal(t, o.outer.Name, o.nest.Name)
		assert.Equal(t, o.outer.ThreadID, o.nest.ThreadID)
	})

	t.Run("from a worker of another pool", func(t *testing.T) {
		out := make(chan bool, 1)
		require.NoError(t, other.Enqueue(TaskFunc(func(ctx context.Context) error {
			out <- p.TryExecuteInline(ctx, TaskFunc(func(context.Context) error { return nil }))
			return nil
		})))
		assert.False(t, <-out)
	})

	t.Run("one worker runs a sibling instead of waiting", func(t *testing.T) {
		done := make(chan struct{})
		require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
			sibling := make(chan struct{})
			task := TaskFunc(func(context.Context) error {
				close(sibling)
				return nil
			})
			if !p.TryExecuteInline(ctx, task) {
				return errors.New("inline refused")
			}
			<-sibling
			close(done)
			return nil
		})))
		testutil.WaitClosed(t, done, testutil.TestTimeout)
	})
}

// claimTask runs at most once across the worker loop and inline callers.
type claimTask struct {
	claimed atomic.Bool
	runs    atomic.Int32
}

func (c *claimTask) Claim() bool {
	return c.claimed.CompareAndSwap(false, true)
}

func (c *claimTask) Execute(context.Context) error {
	c.runs.Add(1)
	return nil
}

func TestTryExecuteInlineWhileDraining(t *testing.T) {
	p, err := NewWithThreads("T", PriorityNormal, 1)
	require.NoError(t, err)

	sibling := &claimTask{}
	out := make(chan bool, 1)
	require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
		if err := p.Enqueue(sibling); err != nil {
			return err
		}
		p.Shutdown()
		out <- p.TryExecuteInline(ctx, sibling)
		return nil
	})))

	assert.True(t, <-out)
	p.Dispose()
	assert.Equal(t, int32(1), sibling.runs.Load())
	assert.Equal(t, int64(2), p.TotalEnqueued())
	assert.Equal(t, p.TotalEnqueued(), p.TotalExecuted())
}

func TestTryExecuteInlineAfterTermination(t *testing.T) {
	p, err := NewWithThreads("T", PriorityNormal, 1)
	require.NoError(t, err)

	ctxs := make(chan context.Context, 1)
	require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
		ctxs <- ctx
		return nil
	})))
	captured := <-ctxs
	p.Dispose()

	ran := false
	assert.False(t, p.TryExecuteInline(captured, TaskFunc(func(context.Context) error {
		ran = true
		return nil
	})))
	assert.False(t, ran)
}

func TestClaimedTaskIsSkipped(t *testing.T) {
	var starts atomic.Int32
	threads := 1
	p, err := New(Config{
		Prefix:      "C",
		Threads:     &threads,
		OnTaskStart: func(WorkerInfo, Task) { starts.Add(1) },
	})
	require.NoError(t, err)

	g := newGate()
	require.NoError(t, p.Enqueue(g))
	<-g.started

	task := &claimTask{}
	require.NoError(t, p.Enqueue(task))
	require.True(t, task.Claim())
	close(g.release)
	p.Dispose()

	assert.Zero(t, task.runs.Load())
	assert.Equal(t, int32(1), starts.Load())
	assert.Equal(t, int64(1), p.TotalExecuted())
}

func TestPanickingHooksAreContained(t *testing.T) {
	rec := testutil.RecordLogs(t)

	threads := 1
	p, err := New(Config{
		Prefix:         "H",
		Threads:        &threads,
		OnWorkerStart:  func(WorkerInfo) { panic("start boom") },
		OnWorkerStop:   func(WorkerInfo) { panic("stop boom") },
		OnEnqueue:      func(Task) { panic("enqueue boom") },
		OnTaskStart:    func(WorkerInfo, Task) { panic("task start boom") },
		OnTaskComplete: func(WorkerInfo, Result) { panic("task complete boom") },
	})
	require.NoError(t, err)

	ran := make(chan struct{})
	require.NoError(t, p.Enqueue(TaskFunc(func(context.Context) error {
		close(ran)
		return nil
	})))
	testutil.WaitClosed(t, ran, testutil.TestTimeout)
	testutil.Eventually(t, func() bool { return p.TotalExecuted() == 1 }, testutil.TestTimeout, time.Millisecond)
	assert.Equal(t, 1, p.Alive())

	p.Dispose()
	assert.Equal(t, WorkerStopped, p.Workers()[0].State)
	for _, name := range []string{"OnWorkerStart", "OnEnqueue", "OnTaskStart", "OnTaskComplete", "OnWorkerStop"} {
		assert.True(t, rec.Has(logging.LevelError, "Hook "+name+" panicked in pool H"), name)
	}
}

func TestHooks(t *testing.T) {
	var mu sync.Mutex
	var events []string
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}

	threads := 1
	p, err := New(Config{
		Prefix:         "H",
		Threads:        &threads,
		OnWorkerStart:  func(w WorkerInfo) { record("start " + w.Name) },
		OnWorkerStop:   func(w WorkerInfo) { record("stop " + w.Name + " " + w.State.String()) },
		OnEnqueue:      func(Task) { record("enqueue") },
		OnTaskStart:    func(w WorkerInfo, _ Task) { record("task start") },
		OnTaskComplete: func(w WorkerInfo, _ Result) { record("task complete") },
	})
	require.NoError(t, err)

	require.NoError(t, p.Enqueue(TaskFunc(func(context.Context) error { return nil })))
	p.Dispose()

	// The enqueue hook runs after the task is visible to the worker, so
	// only the ends of the sequence are ordered.
	require.Len(t, events, 5)
	assert.Equal(t, "start H-0", events[0])
	assert.ElementsMatch(t, []string{"enqueue", "task start", "task complete"}, events[1:4])
	assert.Equal(t, "stop H-0 stopped", events[4])
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "goasync", c.Prefix)
	assert.Nil(t, c.Threads)
	assert.Equal(t, PriorityNormal, c.Priority)
	assert.Equal(t, ShutdownDrain, c.ShutdownPolicy)

	c2 := c.WithThreads(3)
	require.NotNil(t, c2.Threads)
	assert.Equal(t, 3, *c2.Threads)
	assert.Nil(t, c.Threads)
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"lowest", PriorityLowest, false},
		{"BelowNormal", PriorityBelowNormal, false},
		{"", PriorityNormal, false},
		{"normal", PriorityNormal, false},
		{"above-normal", PriorityAboveNormal, false},
		{"ABOVE_NORMAL", PriorityAboveNormal, false},
		{"highest", PriorityHighest, false},
		{"realtime", PriorityNormal, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriority(tt.in)
			if tt.wantErr {
				assert.True(t, gferrors.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var p Priority
	require.NoError(t, p.UnmarshalText([]byte("highest")))
	assert.Equal(t, PriorityHighest, p)
	assert.Equal(t, "highest", p.String())
}

func TestParseShutdownPolicy(t *testing.T) {
	got, err := ParseShutdownPolicy("Abandon")
	require.NoError(t, err)
	assert.Equal(t, ShutdownAbandon, got)

	got, err = ParseShutdownPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ShutdownDrain, got)

	_, err = ParseShutdownPolicy("later")
	assert.True(t, gferrors.IsValidationError(err))

	var s ShutdownPolicy
	require.NoError(t, s.UnmarshalText([]byte("abandon")))
	assert.Equal(t, "abandon", s.String())
}

func TestPriorityNiceValues(t *testing.T) {
	assert.Equal(t, 10, PriorityLowest.nice())
	assert.Equal(t, 5, PriorityBelowNormal.nice())
	assert.Equal(t, 0, PriorityNormal.nice())
	assert.Equal(t, -5, PriorityAboveNormal.nice())
	assert.Equal(t, -10, PriorityHighest.nice())
}
