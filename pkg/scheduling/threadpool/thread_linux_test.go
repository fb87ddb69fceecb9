//go:build linux

package threadpool

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// threadStat returns the comm and nice value of one of our threads.
func threadStat(t *testing.T, tid int) (string, int) {
	t.Helper()

	comm, err := os.ReadFile(fmt.Sprintf("/proc/self/task/%d/comm", tid))
	require.NoError(t, err)

	stat, err := os.ReadFile(fmt.Sprintf("/proc/self/task/%d/stat", tid))
	require.NoError(t, err)
	// Fields after the parenthesised comm start at field 3 (state); nice is field 19.
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))
	nice, err := strconv.Atoi(fields[16])
	require.NoError(t, err)

	return strings.TrimSpace(string(comm)), nice
}

func TestWorkerThreadIdentity(t *testing.T) {
	threads := 2
	p, err := New(Config{Prefix: "render", Threads: &threads, Priority: PriorityLowest})
	require.NoError(t, err)
	defer p.Dispose()

	for _, w := range p.Workers() {
		require.NotZero(t, w.ThreadID)
		name, nice := threadStat(t, w.ThreadID)
		assert.Equal(t, w.Name, name)
		assert.Equal(t, 10, nice)
	}
}

func TestLongThreadNameIsTruncated(t *testing.T) {
	p := newPool(t, "a-very-long-prefix", 1)

	name, _ := threadStat(t, p.Workers()[0].ThreadID)
	assert.Equal(t, "a-very-long-pre", name)
}

func TestTaskRunsOnWorkerThread(t *testing.T) {
	p := newPool(t, "T", 1)

	tids := make(chan int, 1)
	require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
		tids <- unix.Gettid()
		return nil
	})))
	assert.Equal(t, p.Workers()[0].ThreadID, <-tids)
}

func TestInlineRefusedOffWorkerThread(t *testing.T) {
	p := newPool(t, "T", 1)

	out := make(chan bool, 1)
	require.NoError(t, p.Enqueue(TaskFunc(func(ctx context.Context) error {
		// A goroutine spawned by the task carries the task's context but runs
		// on another thread.
		inner := make(chan bool)
		go func() {
			inner <- p.TryExecuteInline(ctx, TaskFunc(func(context.Context) error { return nil }))
		}()
		out <- <-inner
		return nil
	})))
	assert.False(t, <-out)
}
