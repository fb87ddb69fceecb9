//go:build linux

package threadpool

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/vnykmshr/goasync/pkg/logging"
)

// maxThreadName is the kernel's comm length minus the terminating NUL.
const maxThreadName = 15

func threadID() int {
	return unix.Gettid()
}

// onThread reports whether the caller runs on w's locked thread.
func onThread(w *worker) bool {
	return int64(unix.Gettid()) == w.tid.Load()
}

// configureThread names the calling thread and applies priority as its nice
// value. Failures are logged and otherwise ignored.
func configureThread(name string, priority Priority) {
	comm := name
	if len(comm) > maxThreadName {
		comm = comm[:maxThreadName]
	}
	p, err := unix.BytePtrFromString(comm)
	if err == nil {
		err = unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(p)), 0, 0, 0)
	}
	if err != nil {
		logging.Logf(logging.LevelWarning, "Failed to name thread %s: %v", name, err)
	}

	if nice := priority.nice(); nice != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), nice); err != nil {
			logging.Logf(logging.LevelWarning, "Failed to set priority %s on thread %s: %v", priority, name, err)
		}
	}
}
