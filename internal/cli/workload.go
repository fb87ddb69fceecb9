package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	gferrors "github.com/vnykmshr/goasync/pkg/common/errors"
	"github.com/vnykmshr/goasync/pkg/scheduling/async"
	"github.com/vnykmshr/goasync/pkg/scheduling/future"
	"github.com/vnykmshr/goasync/pkg/scheduling/threadpool"
)

// Report summarises one workload run.
type Report struct {
	Units     int
	Succeeded int
	Failed    int
	Panicked  int
	Elapsed   time.Duration
	PerWorker map[string]int
}

// Write prints r in a human readable form.
func (r Report) Write(w io.Writer) {
	fmt.Fprintf(w, "units=%d succeeded=%d failed=%d panicked=%d elapsed=%s\n",
		r.Units, r.Succeeded, r.Failed, r.Panicked, r.Elapsed.Round(time.Millisecond))

	names := make([]string, 0, len(r.PerWorker))
	for name := range r.PerWorker {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, r.PerWorker[name])
	}
}

// Run submits every unit to svc and waits for all of them. Waiting from a
// worker thread of svc runs still queued units inline.
func (wl Workload) Run(ctx context.Context, svc *async.Service) (Report, error) {
	r := Report{Units: wl.Units, PerWorker: make(map[string]int)}
	start := time.Now()

	handles := make([]*future.Future[string], 0, wl.Units)
	for i := 1; i <= wl.Units; i++ {
		f, err := async.Submit(svc, wl.unit(i))
		if err != nil {
			return r, err
		}
		handles = append(handles, f)
	}

	for _, f := range handles {
		worker, err := f.Wait(ctx)
		switch {
		case gferrors.IsWaitCancelled(err):
			return r, err
		case gferrors.IsPanic(err):
			r.Panicked++
		case err != nil:
			r.Failed++
		default:
			r.Succeeded++
			r.PerWorker[worker]++
		}
	}

	r.Elapsed = time.Since(start)
	return r, nil
}

func (wl Workload) unit(n int) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if wl.Duration > 0 {
			time.Sleep(wl.Duration)
		}
		if wl.PanicEvery > 0 && n%wl.PanicEvery == 0 {
			panic(fmt.Sprintf("unit %d panicked", n))
		}
		if wl.FailEvery > 0 && n%wl.FailEvery == 0 {
			return "", fmt.Errorf("unit %d failed", n)
		}

		info, _ := threadpool.WorkerFromContext(ctx)
		return info.Name, nil
	}
}
