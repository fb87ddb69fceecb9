//go:build !linux

package threadpool

import "github.com/vnykmshr/goasync/pkg/logging"

func threadID() int {
	return 0
}

// onThread cannot tell threads apart here, so a worker context is trusted.
func onThread(*worker) bool {
	return true
}

func configureThread(name string, priority Priority) {
	if priority != PriorityNormal {
		logging.Logf(logging.LevelWarning, "Thread priority %s is not supported on this platform, thread %s runs at normal priority", priority, name)
	}
}
